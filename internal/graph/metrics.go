package graph

// DanglingReasonCounts groups unresolved downstream pointers by reason.
func (n *Network) DanglingReasonCounts() map[DanglingReason]int {
	counts := make(map[DanglingReason]int)
	if n == nil {
		return counts
	}
	for _, d := range n.Dangling {
		reason := d.Reason
		if reason == "" {
			reason = ReasonUnknownTarget
		}
		counts[reason]++
	}
	return counts
}

// BranchingSegments returns the ids of segments that carry more than one
// downstream pointer.
func (n *Network) BranchingSegments() []int {
	var out []int
	for i, ds := range n.segDown {
		if len(ds) > 1 {
			out = append(out, n.Segments[i].ID)
		}
	}
	return out
}
