package pipeline

import "vonatradar.hu/internal/models"

// CountyResolver maps a coordinate to the containing county, or nil.
type CountyResolver interface {
	Query(lat, lon float64) *string
}

// AnnotateCounties attaches the resolved county to every stop embedded in
// every report's trip. The input reports are never mutated: shared slices
// are copied before the county is written, so concurrent readers of the
// original reports see them unchanged.
func AnnotateCounties(reports []models.VehicleReport, counties CountyResolver) []models.VehicleReport {
	annotated := make([]models.VehicleReport, len(reports))

	for i, report := range reports {
		stopTimes := make([]models.StopTime, len(report.Trip.StopTimes))
		for j, st := range report.Trip.StopTimes {
			st.Stop.County = counties.Query(st.Stop.Lat, st.Stop.Lon)
			stopTimes[j] = st
		}

		report.Trip.StopTimes = stopTimes
		annotated[i] = report
	}

	return annotated
}
