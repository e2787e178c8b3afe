package classify

import (
	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/walk"
)

// Reconciliation holds the type-4 records and the candidates whose walk
// reached a terminal without meeting a type-1 segment.
type Reconciliation struct {
	Params     map[int]FallbackParams `json:"params"`
	Unresolved []int                  `json:"unresolved"`
}

// Reconcile resolves type-4 candidates. Every candidate keeps its
// background catchment; the downstream walk adds the first type-1 segment
// below it when one exists.
func Reconcile(net *graph.Network, candidates map[int]int, background map[int]BackgroundParams, direct map[int]int) (*Reconciliation, error) {
	res := &Reconciliation{Params: make(map[int]FallbackParams, len(candidates))}

	for _, segID := range sortedKeys(candidates) {
		p := FallbackParams{
			Segment:      segID,
			Catchment:    candidates[segID],
			UpstreamArea: round6(segmentArea(net, segID)),
		}
		if bg, ok := background[segID]; ok {
			p.Catchment = bg.Catchment
			p.AccArea = bg.AccArea
		}

		start, ok := net.SegmentIndex(segID)
		if !ok {
			res.Params[segID] = p
			res.Unresolved = append(res.Unresolved, segID)
			continue
		}

		found, ok, err := walk.ToTerminal(net, start, func(i int) bool {
			_, hit := direct[net.Segments[i].ID]
			return hit
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Params[segID] = p
			res.Unresolved = append(res.Unresolved, segID)
			continue
		}

		nb := net.Segments[found]
		catID := direct[nb.ID]
		n := &Neighbour{
			Segment:      nb.ID,
			Catchment:    catID,
			UpstreamArea: round6(nb.UpstreamArea),
		}
		if cat, ok := net.Catchment(catID); ok {
			n.AccArea = cat.UpstreamArea
		}
		p.Downstream = n
		res.Params[segID] = p
	}
	return res, nil
}
