package tableio

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/minovsor/mgb-bho-ds/internal/classify"
	"github.com/minovsor/mgb-bho-ds/internal/selection"
)

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteClassification writes segment_id, catchment_id, type ordered by
// segment id.
func WriteClassification(path string, final map[int]classify.Assignment) error {
	ids := make([]int, 0, len(final))
	for id := range final {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		a := final[id]
		rows = append(rows, []string{itoa(id), itoa(a.Catchment), itoa(int(a.Tag))})
	}
	return writeCSV(path, []string{"segment_id", "catchment_id", "type"}, rows)
}

// WriteSourceTable writes the type-1 source table in the layout
// ReadSourceTable accepts.
func WriteSourceTable(path string, rows []selection.Selection) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			itoa(r.Catchment), itoa(r.Segment), r.Code,
			ftoa(r.SegmentArea), ftoa(r.CatchmentArea), ftoa(r.DiffPct),
			strconv.FormatBool(r.InCatchment), ftoa(r.X), ftoa(r.Y),
		})
	}
	header := []string{"catchment_id", "segment_id", "code", "segment_area", "catchment_area", "diff_pct", "in_catchment", "x", "y"}
	return writeCSV(path, header, out)
}

// WriteMatches writes the filtered type-1 table.
func WriteMatches(path string, matches []selection.Match) error {
	out := make([][]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, []string{itoa(m.Segment), itoa(m.Catchment), ftoa(m.AreaRatio), ftoa(m.UpstreamArea), ftoa(m.ErrorPct)})
	}
	return writeCSV(path, []string{"segment_id", "catchment_id", "area_ratio", "upstream_area", "error_pct"}, out)
}
