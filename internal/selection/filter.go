package selection

import (
	"math"
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/tolerance"
)

// Match is one row of the pre-filtered type-1 table: a segment that stands
// for a catchment's outlet.
type Match struct {
	Catchment    int     `json:"catchment_id"`
	Segment      int     `json:"segment_id"`
	AreaRatio    float64 `json:"area_ratio"`
	UpstreamArea float64 `json:"upstream_area"`
	ErrorPct     float64 `json:"error_pct"`
}

// Filter turns the source table into the type-1 table. Rows whose relative
// area error falls outside the tolerance bin of the segment's area are
// dropped, and a segment claimed by several catchments is kept only for
// the one with the smallest error.
func Filter(rows []Selection) []Match {
	bySegment := make(map[int]Match)
	for _, r := range rows {
		if r.CatchmentArea <= 0 {
			continue
		}
		ratio := r.SegmentArea / r.CatchmentArea
		m := Match{
			Catchment:    r.Catchment,
			Segment:      r.Segment,
			AreaRatio:    ratio,
			UpstreamArea: r.SegmentArea,
			ErrorPct:     math.Abs(100 * (ratio - 1)),
		}
		prev, seen := bySegment[r.Segment]
		if !seen || m.ErrorPct < prev.ErrorPct || (m.ErrorPct == prev.ErrorPct && m.Catchment < prev.Catchment) {
			bySegment[r.Segment] = m
		}
	}

	out := make([]Match, 0, len(bySegment))
	for _, m := range bySegment {
		if tolerance.Accept(m.ErrorPct, m.UpstreamArea) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Catchment < out[j].Catchment })
	return out
}
