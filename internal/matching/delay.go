package matching

import (
	"time"

	"vonatradar.hu/internal/models"
)

// Result is the output of DelayAndPosition for a single vehicle.
// Delay is in seconds; callers round to minutes at the API boundary.
type Result struct {
	Delay              float64
	TrainPosition      float64
	TotalRouteDistance float64
	ProcessedStops     []models.ProcessedStop
	VehicleProgress    models.VehicleProgress
}

// DelayAndPosition runs the full map-matching computation for one vehicle:
// snap the trip's stops onto the route, locate the vehicle between stops,
// and interpolate a schedule delay from the surrounding timetable points.
//
// routeCoords are decoded [lat, lon] polyline pairs. Missing stop-time
// endpoints or a degenerate route degrade to zero values for this vehicle
// only; they never fail the call.
func DelayAndPosition(calculateAt time.Time, serviceDate string, stopTimes []models.StopTime, routeCoords [][2]float64, lat, lon float64, heading *float64) Result {
	currentTime := SecondsSinceServiceDay(serviceDate, calculateAt)

	route := routePoints(routeCoords)
	vehiclePos := Point{Lon: lon, Lat: lat}

	processedStops := SnapStops(route, stopTimes)

	// Re-attach the original stop-time payload by stop name. Two stops
	// sharing a name bind to the first match; the feed does not carry a
	// better stop identity.
	withInfo := make([]models.ProcessedStop, len(processedStops))
	for i, ps := range processedStops {
		withInfo[i] = ps
		withInfo[i].StopTimeInfo = findStopTime(stopTimes, ps.ID)
	}

	progress := Progress(route, processedStops, vehiclePos, heading)

	var trainPosition float64
	if len(route) >= 2 {
		trainPosition = ProjectWithHeading(NewLineString(route), vehiclePos, heading)
	}

	var totalRouteDistance float64
	for _, ps := range processedStops {
		if ps.DistanceAlongRoute > totalRouteDistance {
			totalRouteDistance = ps.DistanceAlongRoute
		}
	}

	var delay float64
	previous := findStopTime(stopTimes, progress.LastStop)
	next := findStopTime(stopTimes, progress.NextStop)
	if previous != nil && next != nil {
		prevDeparture := float64(previous.ScheduledDeparture)
		nextArrival := float64(next.ScheduledArrival)
		interpolated := prevDeparture + (nextArrival-prevDeparture)*progress.Progress
		delay = float64(currentTime) - interpolated
	}

	return Result{
		Delay:              delay,
		TrainPosition:      trainPosition,
		TotalRouteDistance: totalRouteDistance,
		ProcessedStops:     withInfo,
		VehicleProgress:    progress,
	}
}

func findStopTime(stopTimes []models.StopTime, stopName string) *models.StopTime {
	for i := range stopTimes {
		if stopTimes[i].Stop.Name == stopName {
			return &stopTimes[i]
		}
	}
	return nil
}
