package matching

import (
	"sort"

	"vonatradar.hu/internal/models"
)

// SnapStops projects each stop onto the route line and returns the stops
// ordered by their distance along the route. Routes with fewer than two
// coordinates cannot be projected onto and yield an empty result.
func SnapStops(routeCoords []Point, stopTimes []models.StopTime) []models.ProcessedStop {
	if len(routeCoords) < 2 {
		return nil
	}

	line := NewLineString(routeCoords)
	processed := make([]models.ProcessedStop, 0, len(stopTimes))

	for _, st := range stopTimes {
		stopPoint := Point{Lon: st.Stop.Lon, Lat: st.Stop.Lat}
		processed = append(processed, models.ProcessedStop{
			ID:                 st.Stop.Name,
			OriginalCoords:     [2]float64{st.Stop.Lon, st.Stop.Lat},
			DistanceAlongRoute: line.Project(stopPoint),
		})
	}

	sort.SliceStable(processed, func(i, j int) bool {
		return processed[i].DistanceAlongRoute < processed[j].DistanceAlongRoute
	})

	return processed
}

// Progress determines the vehicle's last and next stop and its fractional
// progress between them. A vehicle past the final stop reports the final
// stop as both endpoints with progress 1, as does a zero-length leg.
func Progress(routeCoords []Point, processedStops []models.ProcessedStop, vehiclePos Point, heading *float64) models.VehicleProgress {
	if len(processedStops) == 0 || len(routeCoords) < 2 {
		return models.VehicleProgress{}
	}

	line := NewLineString(routeCoords)
	vehicleDistance := ProjectWithHeading(line, vehiclePos, heading)

	lastStop := processedStops[0]
	var nextStop *models.ProcessedStop

	for i := range processedStops {
		if processedStops[i].DistanceAlongRoute <= vehicleDistance {
			lastStop = processedStops[i]
		} else {
			nextStop = &processedStops[i]
			break
		}
	}

	if nextStop == nil {
		finalID := processedStops[len(processedStops)-1].ID
		return models.VehicleProgress{LastStop: finalID, NextStop: finalID, Progress: 1}
	}

	legDistance := nextStop.DistanceAlongRoute - lastStop.DistanceAlongRoute
	if legDistance == 0 {
		return models.VehicleProgress{LastStop: lastStop.ID, NextStop: nextStop.ID, Progress: 1}
	}

	progress := (vehicleDistance - lastStop.DistanceAlongRoute) / legDistance

	return models.VehicleProgress{
		LastStop: lastStop.ID,
		NextStop: nextStop.ID,
		Progress: progress,
	}
}
