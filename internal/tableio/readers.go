package tableio

import (
	"context"
	"strings"

	"github.com/minovsor/mgb-bho-ds/internal/domain"
	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/selection"

	"golang.org/x/sync/errgroup"
)

// coastalDominion is the dominion label of segments draining to the sea.
const coastalDominion = "linha de costa"

// ReadSegments reads the river network table.
func ReadSegments(path string) ([]graph.Segment, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	id, err := t.require("id", "segment_id", "cotrecho")
	if err != nil {
		return nil, err
	}
	down, err := t.require("downstream_id", "nutrjus")
	if err != nil {
		return nil, err
	}
	area, err := t.require("upstream_area", "nuareamont")
	if err != nil {
		return nil, err
	}
	code, _ := t.column("code", "cobacia")
	local, _ := t.column("local_area", "nuareacont")
	coastal, _ := t.column("coastal")
	dominion, _ := t.column("dedominial")
	x, _ := t.column("x", "xp")
	y, _ := t.column("y", "yp")

	out := make([]graph.Segment, 0, len(t.rows))
	for n, row := range t.rows {
		var s graph.Segment
		if s.ID, err = parseInt(row, id); err != nil {
			return nil, rowError(path, n, err)
		}
		if s.Downstream, err = parsePointer(row, down); err != nil {
			return nil, rowError(path, n, err)
		}
		if s.UpstreamArea, err = parseFloat(row, area); err != nil {
			return nil, rowError(path, n, err)
		}
		if s.LocalArea, err = parseFloat(row, local); err != nil {
			return nil, rowError(path, n, err)
		}
		if s.X, err = parseFloat(row, x); err != nil {
			return nil, rowError(path, n, err)
		}
		if s.Y, err = parseFloat(row, y); err != nil {
			return nil, rowError(path, n, err)
		}
		s.Code = parseCode(row, code)
		if s.Coastal, err = parseBool(row, coastal); err != nil {
			return nil, rowError(path, n, err)
		}
		if strings.EqualFold(cell(row, dominion), coastalDominion) {
			s.Coastal = true
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadCatchments reads the coarse model topology table.
func ReadCatchments(path string) ([]graph.Catchment, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	id, err := t.require("id", "catchment_id", "mini", "mini_id")
	if err != nil {
		return nil, err
	}
	down, err := t.require("downstream_id", "minijus")
	if err != nil {
		return nil, err
	}
	acc, err := t.require("upstream_area", "aream_km2")
	if err != nil {
		return nil, err
	}
	order, _ := t.column("order", "ordem")
	local, _ := t.column("local_area", "area_km2")
	x, _ := t.column("x", "xcen", "xc")
	y, _ := t.column("y", "ycen", "yc")

	out := make([]graph.Catchment, 0, len(t.rows))
	for n, row := range t.rows {
		var c graph.Catchment
		if c.ID, err = parseInt(row, id); err != nil {
			return nil, rowError(path, n, err)
		}
		if c.Downstream, err = parsePointer(row, down); err != nil {
			return nil, rowError(path, n, err)
		}
		if cell(row, order) != "" {
			if c.Order, err = parseInt(row, order); err != nil {
				return nil, rowError(path, n, err)
			}
		}
		if c.UpstreamArea, err = parseFloat(row, acc); err != nil {
			return nil, rowError(path, n, err)
		}
		if c.LocalArea, err = parseFloat(row, local); err != nil {
			return nil, rowError(path, n, err)
		}
		if c.X, err = parseFloat(row, x); err != nil {
			return nil, rowError(path, n, err)
		}
		if c.Y, err = parseFloat(row, y); err != nil {
			return nil, rowError(path, n, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadDomain reads a segment -> catchment table.
func ReadDomain(path string) (domain.Static, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	seg, err := t.require("segment_id", "cotrecho", "id")
	if err != nil {
		return nil, err
	}
	cat, err := t.require("catchment_id", "mini")
	if err != nil {
		return nil, err
	}

	out := make(domain.Static, len(t.rows))
	for n, row := range t.rows {
		s, err := parseInt(row, seg)
		if err != nil {
			return nil, rowError(path, n, err)
		}
		c, err := parseInt(row, cat)
		if err != nil {
			return nil, rowError(path, n, err)
		}
		out[s] = c
	}
	return out, nil
}

// ReadPolygons reads catchment boundaries stored one vertex per row:
// catchment_id, ring, x, y. Ring 0 is the outer ring; vertices keep file
// order.
func ReadPolygons(path string) ([]domain.Polygon, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cat, err := t.require("catchment_id", "mini")
	if err != nil {
		return nil, err
	}
	ringCol, _ := t.column("ring")
	x, err := t.require("x")
	if err != nil {
		return nil, err
	}
	y, err := t.require("y")
	if err != nil {
		return nil, err
	}

	var order []int
	rings := make(map[int][][]domain.Point)
	for n, row := range t.rows {
		c, err := parseInt(row, cat)
		if err != nil {
			return nil, rowError(path, n, err)
		}
		ring := 0
		if cell(row, ringCol) != "" {
			if ring, err = parseInt(row, ringCol); err != nil {
				return nil, rowError(path, n, err)
			}
		}
		var pt domain.Point
		if pt.X, err = parseFloat(row, x); err != nil {
			return nil, rowError(path, n, err)
		}
		if pt.Y, err = parseFloat(row, y); err != nil {
			return nil, rowError(path, n, err)
		}

		if _, ok := rings[c]; !ok {
			order = append(order, c)
		}
		for len(rings[c]) <= ring {
			rings[c] = append(rings[c], nil)
		}
		rings[c][ring] = append(rings[c][ring], pt)
	}

	out := make([]domain.Polygon, 0, len(order))
	for _, c := range order {
		out = append(out, domain.NewPolygon(c, rings[c]))
	}
	return out, nil
}

// ReadSourceTable reads an external type-1 source table: one candidate
// segment per catchment with both drained areas. It accepts the layout
// WriteSourceTable produces and the source datasets' headers.
func ReadSourceTable(path string) ([]selection.Selection, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cat, err := t.require("catchment_id", "mini")
	if err != nil {
		return nil, err
	}
	seg, err := t.require("segment_id", "bho_cotrecho", "cotrecho")
	if err != nil {
		return nil, err
	}
	segArea, err := t.require("segment_area", "bho_nuareamont", "aream_bho")
	if err != nil {
		return nil, err
	}
	catArea, err := t.require("catchment_area", "mini_areamont", "aream_mgb")
	if err != nil {
		return nil, err
	}
	code, _ := t.column("code", "codigo_otto")
	diff, _ := t.column("diff_pct", "diffp_areamont", "diff%")
	inCat, _ := t.column("in_catchment", "flag_mini_in")
	x, _ := t.column("x", "longitude", "lon")
	y, _ := t.column("y", "latitude", "lat")

	out := make([]selection.Selection, 0, len(t.rows))
	for n, row := range t.rows {
		// Rows without a segment carry no candidate.
		if cell(row, seg) == "" {
			continue
		}
		var r selection.Selection
		if r.Catchment, err = parseInt(row, cat); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.Segment, err = parseInt(row, seg); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.SegmentArea, err = parseFloat(row, segArea); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.CatchmentArea, err = parseFloat(row, catArea); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.DiffPct, err = parseFloat(row, diff); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.InCatchment, err = parseBool(row, inCat); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.X, err = parseFloat(row, x); err != nil {
			return nil, rowError(path, n, err)
		}
		if r.Y, err = parseFloat(row, y); err != nil {
			return nil, rowError(path, n, err)
		}
		r.Code = parseCode(row, code)
		r.AreaDiff = r.SegmentArea - r.CatchmentArea
		if r.AreaDiff < 0 {
			r.AreaDiff = -r.AreaDiff
		}
		out = append(out, r)
	}
	return out, nil
}

// Paths names the input tables. Only Segments and Catchments are required.
type Paths struct {
	Segments   string
	Catchments string
	Domain     string
	Polygons   string
	Type1Table string
}

// Tables holds everything read from Paths.
type Tables struct {
	Segments   []graph.Segment
	Catchments []graph.Catchment
	Domain     domain.Static
	Polygons   []domain.Polygon
	Source     []selection.Selection
}

// LoadAll reads the input tables concurrently.
func LoadAll(ctx context.Context, p Paths) (*Tables, error) {
	var out Tables
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Segments, err = ReadSegments(p.Segments)
		return err
	})
	g.Go(func() (err error) {
		out.Catchments, err = ReadCatchments(p.Catchments)
		return err
	})
	if p.Domain != "" {
		g.Go(func() (err error) {
			out.Domain, err = ReadDomain(p.Domain)
			return err
		})
	}
	if p.Polygons != "" {
		g.Go(func() (err error) {
			out.Polygons, err = ReadPolygons(p.Polygons)
			return err
		})
	}
	if p.Type1Table != "" {
		g.Go(func() (err error) {
			out.Source, err = ReadSourceTable(p.Type1Table)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
