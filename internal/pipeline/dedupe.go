package pipeline

import "vonatradar.hu/internal/models"

// DedupeByVehicleID collapses the raw feed to one report per vehicle,
// keeping the report with the greatest lastUpdated timestamp. Reports
// without a vehicle id are dropped. Output preserves first-appearance
// order, so deduping an already-deduped set is the identity.
func DedupeByVehicleID(reports []models.VehicleReport) []models.VehicleReport {
	latestByID := make(map[string]int, len(reports))
	out := make([]models.VehicleReport, 0, len(reports))

	for _, report := range reports {
		if report.VehicleID == "" {
			continue
		}

		if idx, ok := latestByID[report.VehicleID]; ok {
			if report.LastUpdated > out[idx].LastUpdated {
				out[idx] = report
			}
			continue
		}

		latestByID[report.VehicleID] = len(out)
		out = append(out, report)
	}

	return out
}
