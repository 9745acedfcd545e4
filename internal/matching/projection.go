package matching

import "math"

// bearingSampleDelta is the arc-length offset, in coordinate degrees, used
// to sample the route direction around a projected position.
const bearingSampleDelta = 1e-5

// Bearing returns the initial compass bearing from p1 to p2 in degrees,
// normalized to [0, 360). It uses the spherical bearing formula rather
// than flat-earth math so heading comparisons are consistent regardless
// of local projection distortion.
func Bearing(p1, p2 Point) float64 {
	dLon := radians(p2.Lon - p1.Lon)
	lat1 := radians(p1.Lat)
	lat2 := radians(p2.Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := degrees(math.Atan2(y, x))
	return math.Mod(bearing+360, 360)
}

// headingDiff returns the absolute angular difference between two compass
// bearings, normalized to [0, 180].
func headingDiff(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// ProjectWithHeading projects a point onto the route and returns its
// scalar distance along the route. When a heading is available, the naive
// nearest-point projection is validated against the route's local bearing:
// rail lines loop, reverse, and run parallel tracks, so the nearest point
// can sit on a segment the vehicle cannot be traveling along.
//
// If the naive projection disagrees with the heading by more than 90
// degrees, every segment is scanned and the closest segment whose own
// bearing agrees with the heading wins. If no segment agrees, the naive
// projection stands.
func ProjectWithHeading(line LineString, point Point, heading *float64) float64 {
	defaultProj := line.Project(point)

	if heading == nil {
		return defaultProj
	}

	// Sample a tiny step ahead of the projection to read the route's
	// direction. At the end of the line the sample steps behind instead
	// and the comparison vector reverses.
	var from, to Point
	if defaultProj+bearingSampleDelta > line.Length() {
		from = line.Interpolate(defaultProj)
		to = line.Interpolate(defaultProj - bearingSampleDelta)
	} else {
		from = line.Interpolate(defaultProj)
		to = line.Interpolate(defaultProj + bearingSampleDelta)
	}

	routeBearing := Bearing(from, to)

	if headingDiff(*heading, routeBearing) <= 90 {
		return defaultProj
	}

	// Naive projection points the wrong way; scan for the nearest segment
	// that agrees with the vehicle's heading.
	coords := line.Coords()
	best := defaultProj
	minDist := math.Inf(1)
	found := false
	currentLen := 0.0

	for i := 0; i < len(coords)-1; i++ {
		a, b := coords[i], coords[i+1]
		segLen := distance(a, b)
		if segLen == 0 {
			continue
		}

		if headingDiff(*heading, Bearing(a, b)) <= 90 {
			t, d := projectOntoSegment(point, a, b)
			if d < minDist {
				minDist = d
				best = currentLen + t*segLen
				found = true
			}
		}

		currentLen += segLen
	}

	if !found {
		return defaultProj
	}
	return best
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
