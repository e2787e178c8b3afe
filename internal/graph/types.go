package graph

// Terminal marks a segment or catchment without a downstream neighbour.
const Terminal = -1

// Segment is one reach of the fine-scale river network (BHO).
type Segment struct {
	ID           int     `json:"id"`
	Downstream   int     `json:"downstream_id"`
	Code         string  `json:"code"`
	UpstreamArea float64 `json:"upstream_area"`
	LocalArea    float64 `json:"local_area"`
	Coastal      bool    `json:"coastal,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Catchment is one unit of the coarse hydrological model (MGB).
type Catchment struct {
	ID           int     `json:"id"`
	Downstream   int     `json:"downstream_id"`
	Order        int     `json:"order"`
	LocalArea    float64 `json:"local_area"`
	UpstreamArea float64 `json:"upstream_area"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// DanglingReason explains why a downstream pointer was not linked.
type DanglingReason string

const (
	ReasonUnknownTarget DanglingReason = "unknown_target"
	ReasonSelfLoop      DanglingReason = "self_loop"
)

// DanglingRef is a downstream pointer that names no usable neighbour.
// The referencing element is treated as a dead end.
type DanglingRef struct {
	From      int            `json:"from"`
	Target    int            `json:"target"`
	Catchment bool           `json:"catchment,omitempty"`
	Reason    DanglingReason `json:"reason"`
}
