package walk

import "github.com/minovsor/mgb-bho-ds/internal/graph"

// State is the state of a route trace. Every state except Walking is
// terminal.
type State int

const (
	Walking State = iota
	Success
	DeadEnd
	BranchFatal
	Coastal
	TooLong
	AreaExceeded
)

var stateNames = map[State]string{
	Walking:      "walking",
	Success:      "success",
	DeadEnd:      "dead_end",
	BranchFatal:  "branch_fatal",
	Coastal:      "coastal",
	TooLong:      "too_long",
	AreaExceeded: "area_exceeded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Status returns the numeric outcome code recorded in diagnostics.
func (s State) Status() int {
	switch s {
	case Success:
		return 1
	case BranchFatal:
		return 2
	case Coastal:
		return 20
	case TooLong:
		return 30
	case AreaExceeded:
		return 40
	}
	return 0
}

// Route is the result of a trace. Segments holds the ids visited after the
// inlet; on success the last one is the outlet.
type Route struct {
	Inlet    int   `json:"inlet"`
	Outlet   int   `json:"outlet"`
	Segments []int `json:"segments"`
	State    State `json:"state"`
}

// Trace follows the downstream pointers from the inlet segment until the
// outlet segment is reached or a failure state is entered. Both ends are
// given as arena positions.
//
// After each hop that does not reach the outlet the segment just left is
// checked: a coastal segment, a hop count of cfg.MaxSteps or an upstream
// area above the outlet's all end the trace. A segment with several
// downstream neighbours ends it with BranchFatal and a *TopologyError.
func Trace(n *graph.Network, inlet, outlet int, cfg Config) (Route, error) {
	r := Route{
		Inlet:  n.Segments[inlet].ID,
		Outlet: n.Segments[outlet].ID,
		State:  Walking,
	}
	ref := n.Segments[outlet].UpstreamArea

	cur := inlet
	hops := 0
	for r.State == Walking {
		nxt, err := next(n, cur)
		if err != nil {
			r.State = BranchFatal
			return r, err
		}
		if nxt < 0 {
			r.State = DeadEnd
			continue
		}

		hops++
		r.Segments = append(r.Segments, n.Segments[nxt].ID)
		if nxt == outlet {
			r.State = Success
			continue
		}

		left := n.Segments[cur]
		switch {
		case left.Coastal:
			r.State = Coastal
		case hops >= cfg.MaxSteps:
			r.State = TooLong
		case left.UpstreamArea > ref:
			r.State = AreaExceeded
		default:
			cur = nxt
		}
	}
	return r, nil
}
