package restapi

import "net/http"

// vehicleHandler serves a single processed vehicle by its feed id.
func (api *RestAPI) vehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")
	if vehicleID == "" {
		api.sendError(w, r, http.StatusBadRequest, "missing vehicle id")
		return
	}

	vehicle, err := api.reader.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if vehicle == nil {
		api.sendNotFound(w, r, "vehicle not found")
		return
	}

	api.sendJSON(w, r, vehicle)
}
