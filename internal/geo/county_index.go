// Package geo maps coordinates to the administrative county containing
// them. County polygons come from a static GeoJSON file and are indexed
// with a bounding-box R-tree so a query only runs exact point-in-polygon
// tests against a handful of candidates.
package geo

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/tidwall/rtree"
)

// memoCapacity bounds the per-point result cache. Stop coordinates repeat
// on every poll cycle, so nearly all queries after warmup are cache hits.
const memoCapacity = 10000

// countyNameProperty is the GeoJSON property holding the county name.
const countyNameProperty = "megye"

type countyFeature struct {
	name string
	// rings per polygon: the first ring is the outer boundary, the rest
	// are holes. MultiPolygon features contribute several polygons.
	polygons [][][][]float64
}

// CountyIndex answers "which county contains this point". Construction is
// lazy and runs at most once; a missing or unreadable source file leaves
// the index empty, and every query then returns nil.
type CountyIndex struct {
	path   string
	logger *slog.Logger

	once     sync.Once
	features []countyFeature
	tree     rtree.RTreeG[int]

	memo *lru.Cache[[2]float64, *string]
}

// NewCountyIndex creates an index backed by the GeoJSON file at path. The
// file is not read until the first query.
func NewCountyIndex(path string, logger *slog.Logger) *CountyIndex {
	if logger == nil {
		logger = slog.Default()
	}
	memo, _ := lru.New[[2]float64, *string](memoCapacity)
	return &CountyIndex{
		path:   path,
		logger: logger.With(slog.String("component", "county_index")),
		memo:   memo,
	}
}

// Query returns the name of the county containing the point, or nil if no
// county contains it. Safe for concurrent use.
func (c *CountyIndex) Query(lat, lon float64) *string {
	c.once.Do(c.load)

	key := [2]float64{lat, lon}
	if cached, ok := c.memo.Get(key); ok {
		return cached
	}

	result := c.lookup(lat, lon)
	c.memo.Add(key, result)
	return result
}

func (c *CountyIndex) lookup(lat, lon float64) *string {
	// Candidates whose bounding box contains the point, in feature order
	// so ties resolve deterministically.
	var candidates []int
	point := [2]float64{lon, lat}
	c.tree.Search(point, point, func(_, _ [2]float64, idx int) bool {
		candidates = append(candidates, idx)
		return true
	})
	sort.Ints(candidates)

	for _, idx := range candidates {
		feature := c.features[idx]
		for _, polygon := range feature.polygons {
			if polygonContains(polygon, lon, lat) {
				name := feature.name
				return &name
			}
		}
	}

	return nil
}

func (c *CountyIndex) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		c.logger.Warn("county data unavailable, all lookups will return no county",
			slog.String("path", c.path), slog.Any("error", err))
		return
	}

	features, err := parseCountyFeatures(data)
	if err != nil {
		c.logger.Error("failed to parse county data",
			slog.String("path", c.path), slog.Any("error", err))
		return
	}

	c.features = features
	for i, f := range c.features {
		minX, minY, maxX, maxY := featureBounds(f)
		c.tree.Insert([2]float64{minX, minY}, [2]float64{maxX, maxY}, i)
	}

	c.logger.Info("indexed counties", slog.Int("count", len(c.features)))
}

func parseCountyFeatures(data []byte) ([]countyFeature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling feature collection: %w", err)
	}

	var features []countyFeature
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}

		name, _ := f.PropertyString(countyNameProperty)

		var polygons [][][][]float64
		switch {
		case f.Geometry.IsPolygon():
			polygons = [][][][]float64{f.Geometry.Polygon}
		case f.Geometry.IsMultiPolygon():
			polygons = f.Geometry.MultiPolygon
		default:
			continue
		}

		features = append(features, countyFeature{name: name, polygons: polygons})
	}

	return features, nil
}

func featureBounds(f countyFeature) (minX, minY, maxX, maxY float64) {
	first := true
	for _, polygon := range f.polygons {
		for _, ring := range polygon {
			for _, coord := range ring {
				if len(coord) < 2 {
					continue
				}
				if first {
					minX, maxX = coord[0], coord[0]
					minY, maxY = coord[1], coord[1]
					first = false
					continue
				}
				minX = min(minX, coord[0])
				maxX = max(maxX, coord[0])
				minY = min(minY, coord[1])
				maxY = max(maxY, coord[1])
			}
		}
	}
	return minX, minY, maxX, maxY
}

// polygonContains tests containment against a polygon's outer ring and
// its holes. GeoJSON ring order: first ring is the boundary, the rest are
// holes.
func polygonContains(polygon [][][]float64, x, y float64) bool {
	if len(polygon) == 0 || !ringContains(polygon[0], x, y) {
		return false
	}
	for _, hole := range polygon[1:] {
		if ringContains(hole, x, y) {
			return false
		}
	}
	return true
}

// ringContains runs a standard ray-casting test against one ring.
func ringContains(ring [][]float64, x, y float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
