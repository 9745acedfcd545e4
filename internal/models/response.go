package models

// TrainsResponse is the payload served to clients by the /trains endpoint.
// Timestamp is RFC3339; DataAgeMinutes counts whole minutes since the
// snapshot was published.
type TrainsResponse struct {
	Timestamp      string             `json:"timestamp"`
	NoDataReceived bool               `json:"noDataReceived"`
	DataAgeMinutes int64              `json:"dataAgeMinutes"`
	Locations      []ProcessedVehicle `json:"locations"`
	Error          string             `json:"error,omitempty"`
}
