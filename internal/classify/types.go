// Package classify assigns every domain segment to a catchment under one of
// four association types and builds the per-type parameter records.
//
//	Type 1  the segment stands for a catchment's outlet
//	Type 2  the segment lies on a screened route between type-1 segments
//	Type 3  background: the catchment the segment falls in
//	Type 4  a main-network segment left over after types 1 and 2
package classify

import "fmt"

// Tag is the association type of a segment.
type Tag int

const (
	TagDirect     Tag = 1
	TagRoute      Tag = 2
	TagBackground Tag = 3
	TagFallback   Tag = 4
)

func (t Tag) String() string {
	switch t {
	case TagDirect:
		return "direct"
	case TagRoute:
		return "route"
	case TagBackground:
		return "background"
	case TagFallback:
		return "fallback"
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// Assignment is the final association of one segment.
type Assignment struct {
	Catchment int `json:"catchment_id"`
	Tag       Tag `json:"type"`
}

// Record is implemented by every per-type parameter record.
type Record interface {
	Tag() Tag
	SegmentID() int
}

// DirectParams describes a type-1 segment.
type DirectParams struct {
	Segment      int     `json:"segment_id"`
	Catchment    int     `json:"catchment_id"`
	AreaRatio    float64 `json:"area_ratio"`
	UpstreamArea float64 `json:"upstream_area"`
}

func (p DirectParams) Tag() Tag       { return TagDirect }
func (p DirectParams) SegmentID() int { return p.Segment }

// RouteParams describes a segment on a type-2 route. FracArea is the share
// of the catchment's local routed area carried by the segment.
type RouteParams struct {
	Segment               int     `json:"segment_id"`
	RefCatchment          int     `json:"ref_catchment_id"`
	UpstreamArea          float64 `json:"upstream_area"`
	FracArea              float64 `json:"frac_area"`
	UpstreamCatchments    []int   `json:"upstream_catchments"`
	AllUpstreamCatchments []int   `json:"all_upstream_catchments"`
}

func (p RouteParams) Tag() Tag       { return TagRoute }
func (p RouteParams) SegmentID() int { return p.Segment }

// BackgroundParams describes a segment through the catchment it falls in.
type BackgroundParams struct {
	Segment      int     `json:"segment_id"`
	Catchment    int     `json:"catchment_id"`
	LocalArea    float64 `json:"local_area"`
	AccArea      float64 `json:"acc_area"`
	UpstreamArea float64 `json:"upstream_area"`
}

func (p BackgroundParams) Tag() Tag       { return TagBackground }
func (p BackgroundParams) SegmentID() int { return p.Segment }

// Neighbour is the first type-1 segment found downstream of a type-4
// candidate.
type Neighbour struct {
	Segment      int     `json:"segment_id"`
	Catchment    int     `json:"catchment_id"`
	AccArea      float64 `json:"acc_area"`
	UpstreamArea float64 `json:"upstream_area"`
}

// FallbackParams describes a type-4 segment. Background is always set;
// Downstream is nil when the walk reached a terminal first.
type FallbackParams struct {
	Segment      int        `json:"segment_id"`
	Catchment    int        `json:"catchment_id"`
	AccArea      float64    `json:"acc_area"`
	UpstreamArea float64    `json:"upstream_area"`
	Downstream   *Neighbour `json:"downstream,omitempty"`
}

func (p FallbackParams) Tag() Tag       { return TagFallback }
func (p FallbackParams) SegmentID() int { return p.Segment }

// Resolved reports whether a downstream type-1 neighbour was found.
func (p FallbackParams) Resolved() bool {
	return p.Downstream != nil
}

// Params collects the records of every type keyed by segment id.
type Params struct {
	Direct     map[int]DirectParams     `json:"type1"`
	Route      map[int]RouteParams      `json:"type2"`
	Background map[int]BackgroundParams `json:"type3"`
	Fallback   map[int]FallbackParams   `json:"type4"`
}

// Records flattens p into a single slice of records.
func (p *Params) Records() []Record {
	out := make([]Record, 0, len(p.Direct)+len(p.Route)+len(p.Background)+len(p.Fallback))
	for _, r := range p.Direct {
		out = append(out, r)
	}
	for _, r := range p.Route {
		out = append(out, r)
	}
	for _, r := range p.Background {
		out = append(out, r)
	}
	for _, r := range p.Fallback {
		out = append(out, r)
	}
	return out
}
