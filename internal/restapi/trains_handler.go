package restapi

import "net/http"

// trainsHandler serves the latest cached snapshot. Staleness policy is
// applied by the reader: stale data is served while a background refresh
// runs, and data past the hard maximum comes back as an empty list with
// noDataReceived set.
func (api *RestAPI) trainsHandler(w http.ResponseWriter, r *http.Request) {
	response, err := api.reader.GetSnapshot(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendJSON(w, r, response)
}
