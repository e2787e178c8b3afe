package classify

import "github.com/minovsor/mgb-bho-ds/internal/selection"

// Direct returns the type-1 association segment -> catchment from the
// filtered type-1 table.
func Direct(matches []selection.Match) map[int]int {
	out := make(map[int]int, len(matches))
	for _, m := range matches {
		out[m.Segment] = m.Catchment
	}
	return out
}

// DirectRecords builds type-1 parameters for the segments kept in assoc.
func DirectRecords(matches []selection.Match, assoc map[int]int) map[int]DirectParams {
	out := make(map[int]DirectParams, len(assoc))
	for _, m := range matches {
		if _, ok := assoc[m.Segment]; !ok {
			continue
		}
		out[m.Segment] = DirectParams{
			Segment:      m.Segment,
			Catchment:    m.Catchment,
			AreaRatio:    m.AreaRatio,
			UpstreamArea: m.UpstreamArea,
		}
	}
	return out
}
