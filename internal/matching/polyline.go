package matching

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes a Google-encoded polyline at the standard 1e-5
// coordinate precision into an ordered sequence of [lat, lon] pairs.
// Order is preserved; route direction matters for every downstream
// projection.
func DecodePolyline(encoded string) ([][2]float64, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding polyline: %w", err)
	}

	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c[0], c[1]}
	}
	return out, nil
}

// routePoints converts decoded [lat, lon] pairs to lon/lat Points and
// drops repeated coordinates, keeping the first occurrence. Degenerate
// repeated points break projection length math, and looped routes revisit
// coordinates the projection must only see once.
func routePoints(latLon [][2]float64) []Point {
	seen := make(map[Point]struct{}, len(latLon))
	points := make([]Point, 0, len(latLon))

	for _, c := range latLon {
		p := Point{Lon: c[1], Lat: c[0]}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		points = append(points, p)
	}

	return points
}
