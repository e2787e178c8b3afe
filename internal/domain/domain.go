// Package domain seeds the raw segment-to-catchment map that every later
// stage works from.
package domain

import (
	"context"
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
)

// Mapper produces the raw domain map: segment id -> catchment id.
type Mapper interface {
	Map(ctx context.Context, net *graph.Network) (map[int]int, error)
}

// Static is a precomputed domain map, typically read from a table.
type Static map[int]int

// Map returns a copy of the entries whose segment exists in net.
func (s Static) Map(ctx context.Context, net *graph.Network) (map[int]int, error) {
	out := make(map[int]int, len(s))
	for seg, cat := range s {
		if _, ok := net.SegmentIndex(seg); ok {
			out[seg] = cat
		}
	}
	return out, nil
}

// Point is a planar coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a catchment boundary: the first ring is the outer ring, the
// rest are holes.
type Polygon struct {
	Catchment int        `json:"catchment_id"`
	Rings     [][]Point  `json:"rings"`
	BBox      [4]float64 `json:"bbox"`
}

// NewPolygon builds a polygon and its bounding box.
func NewPolygon(catchment int, rings [][]Point) Polygon {
	p := Polygon{Catchment: catchment, Rings: rings}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return p
	}
	b := [4]float64{rings[0][0].X, rings[0][0].Y, rings[0][0].X, rings[0][0].Y}
	for _, pt := range rings[0] {
		if pt.X < b[0] {
			b[0] = pt.X
		}
		if pt.Y < b[1] {
			b[1] = pt.Y
		}
		if pt.X > b[2] {
			b[2] = pt.X
		}
		if pt.Y > b[3] {
			b[3] = pt.Y
		}
	}
	p.BBox = b
	return p
}

// Contains reports whether pt lies inside the outer ring and outside every
// hole, using the even-odd rule.
func (p Polygon) Contains(pt Point) bool {
	if len(p.Rings) == 0 || !inBBox(pt, p.BBox) {
		return false
	}
	if !pointInRing(pt, p.Rings[0]) {
		return false
	}
	for _, hole := range p.Rings[1:] {
		if pointInRing(pt, hole) {
			return false
		}
	}
	return true
}

func pointInRing(pt Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if (yi > pt.Y) != (yj > pt.Y) && pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
	}
	return inside
}

func inBBox(pt Point, b [4]float64) bool {
	return pt.X >= b[0] && pt.X <= b[2] && pt.Y >= b[1] && pt.Y <= b[3]
}

// PolygonJoin assigns each segment to the catchment polygon containing its
// representative point. Polygons are tried in ascending catchment id, so
// overlapping boundaries resolve to the lowest id.
type PolygonJoin struct {
	polygons []Polygon
}

func NewPolygonJoin(polygons []Polygon) *PolygonJoin {
	ps := append([]Polygon(nil), polygons...)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Catchment < ps[j].Catchment })
	return &PolygonJoin{polygons: ps}
}

func (j *PolygonJoin) Map(ctx context.Context, net *graph.Network) (map[int]int, error) {
	out := make(map[int]int)
	for i, seg := range net.Segments {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		pt := Point{X: seg.X, Y: seg.Y}
		for _, p := range j.polygons {
			if p.Contains(pt) {
				out[seg.ID] = p.Catchment
				break
			}
		}
	}
	return out, nil
}
