// Package matching implements the per-vehicle map-matching and delay
// inference engine: polyline decoding, heading-aware projection onto the
// route geometry, stop snapping, progress and delay computation.
//
// All route math is planar Euclidean over decoded polyline coordinates.
// The feed covers a small regional bounding box, so the distortion of
// treating degrees as a flat plane is acceptable. Bearings alone use the
// spherical formula, because angle comparison must stay rotation-consistent.
package matching

import "math"

// Point is a position in lon/lat order, matching GeoJSON convention.
type Point struct {
	Lon float64
	Lat float64
}

// LineString is an ordered, immutable route path with precomputed
// cumulative segment lengths for cheap scalar projections.
type LineString struct {
	coords []Point
	cum    []float64
}

// NewLineString builds a LineString from route coordinates. Fewer than two
// points yields a degenerate line of length zero.
func NewLineString(coords []Point) LineString {
	cum := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cum[i] = cum[i-1] + distance(coords[i-1], coords[i])
	}
	return LineString{coords: coords, cum: cum}
}

// Coords returns the underlying coordinate sequence.
func (l LineString) Coords() []Point {
	return l.coords
}

// Length returns the total planar arc length of the line.
func (l LineString) Length() float64 {
	if len(l.cum) == 0 {
		return 0
	}
	return l.cum[len(l.cum)-1]
}

// Project returns the scalar arc-length position of the point on the line
// closest to p. Ties resolve to the earliest position along the line.
func (l LineString) Project(p Point) float64 {
	if len(l.coords) < 2 {
		return 0
	}

	best := 0.0
	bestDist := math.Inf(1)

	for i := 0; i < len(l.coords)-1; i++ {
		t, d := projectOntoSegment(p, l.coords[i], l.coords[i+1])
		if d < bestDist {
			bestDist = d
			best = l.cum[i] + t*distance(l.coords[i], l.coords[i+1])
		}
	}

	return best
}

// Interpolate returns the point at scalar distance d along the line,
// clamped to the line's extent.
func (l LineString) Interpolate(d float64) Point {
	if len(l.coords) == 0 {
		return Point{}
	}
	if d <= 0 || len(l.coords) == 1 {
		return l.coords[0]
	}
	if d >= l.Length() {
		return l.coords[len(l.coords)-1]
	}

	for i := 1; i < len(l.cum); i++ {
		if l.cum[i] >= d {
			segLen := l.cum[i] - l.cum[i-1]
			if segLen == 0 {
				return l.coords[i]
			}
			t := (d - l.cum[i-1]) / segLen
			a, b := l.coords[i-1], l.coords[i]
			return Point{
				Lon: a.Lon + t*(b.Lon-a.Lon),
				Lat: a.Lat + t*(b.Lat-a.Lat),
			}
		}
	}

	return l.coords[len(l.coords)-1]
}

func distance(a, b Point) float64 {
	return math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat)
}

// projectOntoSegment projects p onto segment ab. It returns the clamped
// parameter t in [0,1] and the distance from p to the projected point.
func projectOntoSegment(p, a, b Point) (t, dist float64) {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy

	if lenSq == 0 {
		return 0, distance(p, a)
	}

	t = ((p.Lon-a.Lon)*dx + (p.Lat-a.Lat)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	proj := Point{Lon: a.Lon + t*dx, Lat: a.Lat + t*dy}
	return t, distance(p, proj)
}
