package restapi

import (
	"encoding/json"
	"net/http"

	"vonatradar.hu/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// healthHandler verifies cache connectivity and readiness. It returns
// 503 Service Unavailable when the server cannot serve snapshot reads.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Liveness: is the basic infrastructure wired up?
	if api.Application == nil || api.pinger == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "cache not initialized",
		})
		return
	}

	// Connectivity: is the cache actually reachable?
	if err := api.pinger.Ping(r.Context()); err != nil {
		logging.LogError(api.Logger, "cache ping failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "cache connection failed",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status: "ok",
	})
}
