// Package tableio reads the input tables and writes the result tables as
// CSV. Headers are matched case-insensitively against a list of aliases per
// column so both the plain names and the source datasets' names work.
package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type table struct {
	path string
	cols map[string]int
	rows [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return parseTable(path, f)
}

func parseTable(path string, r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}

	t := &table{path: path, cols: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		t.cols[normalize(h)] = i
	}
	return t, nil
}

// normalize lowercases a header, maps "/" to "_" and drops parentheses,
// so "AreaM_(km2)" and "aream_km2" compare equal.
func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.ReplaceAll(h, "/", "_")
	h = strings.ReplaceAll(h, "(", "")
	return strings.ReplaceAll(h, ")", "")
}

// column returns the index of the first alias present in the header.
func (t *table) column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := t.cols[a]; ok {
			return i, true
		}
	}
	return -1, false
}

func (t *table) require(aliases ...string) (int, error) {
	i, ok := t.column(aliases...)
	if !ok {
		return -1, fmt.Errorf("%s: missing column %q", t.path, aliases[0])
	}
	return i, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseInt(row []string, i int) (int, error) {
	v := cell(row, i)
	n, err := strconv.Atoi(v)
	if err == nil {
		return n, nil
	}
	// Spreadsheet exports write integral ids as "12.0".
	f, ferr := strconv.ParseFloat(v, 64)
	if ferr != nil || f != float64(int(f)) {
		return 0, err
	}
	return int(f), nil
}

func parseFloat(row []string, i int) (float64, error) {
	v := cell(row, i)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

// parsePointer reads a downstream id. Empty, zero and negative values are
// terminal markers.
func parsePointer(row []string, i int) (int, error) {
	if cell(row, i) == "" {
		return -1, nil
	}
	n, err := parseInt(row, i)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return -1, nil
	}
	return n, nil
}

// parseCode reads a hierarchical code. Spreadsheet exports write integral
// codes as "8655.0"; an all-zero fraction is dropped as text so long codes
// keep every digit.
func parseCode(row []string, i int) string {
	v := cell(row, i)
	whole, frac, ok := strings.Cut(v, ".")
	if ok && whole != "" && strings.Trim(frac, "0") == "" {
		return whole
	}
	return v
}

func parseBool(row []string, i int) (bool, error) {
	v := cell(row, i)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func rowError(path string, line int, err error) error {
	return fmt.Errorf("%s:%d: %w", path, line+2, err)
}
