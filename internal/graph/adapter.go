package graph

import "sort"

// Members groups segment arena positions by the catchment each segment
// falls in, according to a segment-to-catchment map. Segments missing from
// the network or rejected by keep are skipped. Each group is sorted by
// arena position.
func (n *Network) Members(domain map[int]int, keep func(Segment) bool) map[int][]int {
	out := make(map[int][]int)
	for segID, catID := range domain {
		i, ok := n.segIdx[segID]
		if !ok {
			continue
		}
		if keep != nil && !keep(n.Segments[i]) {
			continue
		}
		out[catID] = append(out[catID], i)
	}
	for _, ids := range out {
		sort.Ints(ids)
	}
	return out
}

// SegmentIDs converts arena positions back to segment ids.
func (n *Network) SegmentIDs(idx []int) []int {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = n.Segments[i].ID
	}
	return out
}
