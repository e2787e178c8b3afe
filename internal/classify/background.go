package classify

import (
	"math"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
)

// Background returns the type-3 association: every domain segment keeps
// the catchment from the raw domain map.
func Background(domain map[int]int) map[int]int {
	out := make(map[int]int, len(domain))
	for seg, cat := range domain {
		out[seg] = cat
	}
	return out
}

// BackgroundRecords builds type-3 parameters for the given association.
// Segments or catchments unknown to the network are skipped.
func BackgroundRecords(net *graph.Network, assoc map[int]int) map[int]BackgroundParams {
	out := make(map[int]BackgroundParams, len(assoc))
	for segID, catID := range assoc {
		seg, ok := net.Segment(segID)
		if !ok {
			continue
		}
		cat, ok := net.Catchment(catID)
		if !ok {
			continue
		}
		out[segID] = BackgroundParams{
			Segment:      segID,
			Catchment:    catID,
			LocalArea:    cat.LocalArea,
			AccArea:      cat.UpstreamArea,
			UpstreamArea: round6(seg.UpstreamArea),
		}
	}
	return out
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
