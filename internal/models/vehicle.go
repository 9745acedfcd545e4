// Package models defines the feed-facing and derived data structures that
// flow from the ingestion pipeline to the serving layer. Field names mirror
// the upstream EMMA GraphQL schema, so the JSON tags are camelCase.
package models

// Stop is a scheduled stop on a trip. County is filled in by the
// annotation step; it is nil when the point falls outside every known
// county polygon.
type Stop struct {
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	PlatformCode *string `json:"platformCode,omitempty"`
	County       *string `json:"county,omitempty"`
}

// StopTime carries the scheduled and realtime arrival/departure for one
// stop, in seconds since the start of the trip's service day.
type StopTime struct {
	ScheduledArrival   int64 `json:"scheduledArrival"`
	RealtimeArrival    int64 `json:"realtimeArrival"`
	ScheduledDeparture int64 `json:"scheduledDeparture"`
	RealtimeDeparture  int64 `json:"realtimeDeparture"`
	Stop               Stop  `json:"stop"`
}

// Route holds display metadata for the trip's route.
type Route struct {
	TextColor string `json:"textColor"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
}

// TripGeometry wraps the encoded polyline for the trip's path.
type TripGeometry struct {
	Points string `json:"points"`
}

// InfoService is an informational annotation on part of a trip, passed
// through from the feed unchanged.
type InfoService struct {
	Name          string `json:"name"`
	FromStopIndex int    `json:"fromStopIndex"`
	TillStopIndex int    `json:"tillStopIndex"`
	FontCharSet   string `json:"fontCharSet"`
	FontCode      int    `json:"fontCode"`
	Displayable   bool   `json:"displayable"`
}

// Alert is a service alert attached to the trip, passed through unchanged.
type Alert struct {
	AlertDescriptionText string  `json:"alertDescriptionText"`
	AlertURL             *string `json:"alertUrl,omitempty"`
	EffectiveStartDate   int64   `json:"effectiveStartDate"`
	EffectiveEndDate     int64   `json:"effectiveEndDate"`
}

// Trip describes the scheduled trip a vehicle is currently serving.
type Trip struct {
	ServiceDate          string        `json:"serviceDate"`
	TripShortName        string        `json:"tripShortName"`
	Route                Route         `json:"route"`
	TripGeometry         TripGeometry  `json:"tripGeometry"`
	StopTimes            []StopTime    `json:"stoptimes"`
	WheelchairAccessible string        `json:"wheelchairAccessible"`
	BikesAllowed         string        `json:"bikesAllowed"`
	InfoServices         []InfoService `json:"infoServices"`
	Alerts               []Alert       `json:"alerts"`
}

// VehicleReport is one raw vehicle position from the feed. Heading is nil
// when the feed does not know the vehicle's direction of travel.
type VehicleReport struct {
	VehicleID   string   `json:"vehicleId"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Heading     *float64 `json:"heading"`
	Speed       float64  `json:"speed"`
	LastUpdated int64    `json:"lastUpdated"`
	Trip        Trip     `json:"trip"`
}

// ProcessedStop is a stop snapped onto the route polyline. Distance is the
// cumulative planar arc length from the start of the route.
type ProcessedStop struct {
	ID                 string     `json:"id"`
	OriginalCoords     [2]float64 `json:"originalCoords"`
	DistanceAlongRoute float64    `json:"distanceAlongRoute"`
	StopTimeInfo       *StopTime  `json:"stopTimeInfo,omitempty"`
}

// VehicleProgress locates a vehicle between two stops. Progress is a
// fraction in [0,1]; 1 means the vehicle has passed NextStop.
type VehicleProgress struct {
	LastStop string  `json:"lastStop"`
	NextStop string  `json:"nextStop"`
	Progress float64 `json:"progress"`
}

// ProcessedVehicle is a VehicleReport enriched with delay and position
// data. This is the record the pipeline publishes and the API serves.
// Delay is in whole minutes, rounded from the interpolated seconds value.
type ProcessedVehicle struct {
	VehicleReport
	Delay              int64           `json:"delay"`
	TrainPosition      float64         `json:"trainPosition"`
	TotalRouteDistance float64         `json:"totalRouteDistance"`
	ProcessedStops     []ProcessedStop `json:"processedStops"`
	VehicleProgress    VehicleProgress `json:"vehicleProgress"`
}

// Snapshot is the single cached result set of one successful pipeline run.
// Timestamp is Unix milliseconds at publish time.
type Snapshot struct {
	Timestamp      int64              `json:"timestamp"`
	NoDataReceived bool               `json:"noDataReceived"`
	Locations      []ProcessedVehicle `json:"locations"`
}
