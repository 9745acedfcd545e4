package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineStringLength(t *testing.T) {
	tests := []struct {
		name     string
		coords   []Point
		expected float64
	}{
		{"empty", nil, 0},
		{"single point", []Point{{0, 0}}, 0},
		{"straight segment", []Point{{0, 0}, {0, 3}}, 3},
		{"two segments", []Point{{0, 0}, {0, 3}, {4, 3}}, 7},
		{"repeated point adds nothing", []Point{{0, 0}, {0, 0}, {0, 2}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, NewLineString(tt.coords).Length(), 1e-12)
		})
	}
}

func TestLineStringProject(t *testing.T) {
	line := NewLineString([]Point{{0, 0}, {0, 1}, {0, 2}})

	tests := []struct {
		name     string
		point    Point
		expected float64
	}{
		{"before start clamps to zero", Point{0, -1}, 0},
		{"at start", Point{0, 0}, 0},
		{"mid first segment", Point{0.5, 0.5}, 0.5},
		{"at interior vertex", Point{0, 1}, 1},
		{"mid second segment", Point{-0.25, 1.5}, 1.5},
		{"past end clamps to length", Point{0, 5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, line.Project(tt.point), 1e-12)
		})
	}
}

func TestLineStringProjectDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, NewLineString(nil).Project(Point{1, 1}))
	assert.Equal(t, 0.0, NewLineString([]Point{{3, 4}}).Project(Point{1, 1}))
}

func TestLineStringProjectPrefersEarliestOnTie(t *testing.T) {
	// An out-and-back line: both legs pass equally close to the point.
	line := NewLineString([]Point{{0, 0}, {0, 2}, {0, 0}})
	assert.InDelta(t, 1.0, line.Project(Point{0, 1}), 1e-12)
}

func TestLineStringInterpolate(t *testing.T) {
	line := NewLineString([]Point{{0, 0}, {0, 1}, {1, 1}})

	tests := []struct {
		name     string
		distance float64
		expected Point
	}{
		{"negative clamps to start", -1, Point{0, 0}},
		{"zero", 0, Point{0, 0}},
		{"mid first segment", 0.5, Point{0, 0.5}},
		{"at vertex", 1, Point{0, 1}},
		{"mid second segment", 1.5, Point{0.5, 1}},
		{"beyond end clamps to last", 10, Point{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := line.Interpolate(tt.distance)
			assert.InDelta(t, tt.expected.Lon, got.Lon, 1e-12)
			assert.InDelta(t, tt.expected.Lat, got.Lat, 1e-12)
		})
	}
}

func TestProjectOntoSegment(t *testing.T) {
	a := Point{0, 0}
	b := Point{4, 0}

	t.Run("interior projection", func(t *testing.T) {
		tt, d := projectOntoSegment(Point{1, 2}, a, b)
		assert.InDelta(t, 0.25, tt, 1e-12)
		assert.InDelta(t, 2.0, d, 1e-12)
	})

	t.Run("clamps before start", func(t *testing.T) {
		tt, d := projectOntoSegment(Point{-3, 4}, a, b)
		assert.Equal(t, 0.0, tt)
		assert.InDelta(t, 5.0, d, 1e-12)
	})

	t.Run("clamps past end", func(t *testing.T) {
		tt, d := projectOntoSegment(Point{7, 4}, a, b)
		assert.Equal(t, 1.0, tt)
		assert.InDelta(t, 5.0, d, 1e-12)
	})

	t.Run("zero length segment", func(t *testing.T) {
		tt, d := projectOntoSegment(Point{3, 4}, a, a)
		assert.Equal(t, 0.0, tt)
		assert.InDelta(t, 5.0, d, 1e-12)
	})
}
