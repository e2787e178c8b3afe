// Package export writes the final classification and the per-type parameter
// collections as a single JSON document for downstream tooling.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/classify"
)

// Bundle is everything a downscaling run needs from a classification.
type Bundle struct {
	RunID          string                      `json:"run_id"`
	Classification map[int]classify.Assignment `json:"classification"`
	Params         *classify.Params            `json:"params"`
	Unresolved     []int                       `json:"unresolved_type4,omitempty"`
	Counts         map[string]int              `json:"counts"`
	Records        map[string]int              `json:"records"`
}

// NewBundle derives per-type counts from the classification.
func NewBundle(runID string, final map[int]classify.Assignment, params *classify.Params, unresolved []int) *Bundle {
	b := &Bundle{
		RunID:          runID,
		Classification: final,
		Params:         params,
		Counts:         Counts(final),
		Records:        RecordCounts(params),
	}
	if len(unresolved) > 0 {
		b.Unresolved = append([]int(nil), unresolved...)
		sort.Ints(b.Unresolved)
	}
	return b
}

// Counts tallies assignments by tag name.
func Counts(final map[int]classify.Assignment) map[string]int {
	out := map[string]int{}
	for _, a := range final {
		out[a.Tag.String()]++
	}
	return out
}

// RecordCounts tallies parameter records by tag name. It differs from
// Counts when a validated segment lacks its record.
func RecordCounts(params *classify.Params) map[string]int {
	out := map[string]int{}
	if params == nil {
		return out
	}
	for _, r := range params.Records() {
		out[r.Tag().String()]++
	}
	return out
}

// Save persists the bundle to a JSON file.
func Save(b *Bundle, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

// Load reads a bundle written by Save.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	b := &Bundle{}
	if err := json.NewDecoder(f).Decode(b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.Classification == nil {
		b.Classification = map[int]classify.Assignment{}
	}
	if b.Counts == nil {
		b.Counts = Counts(b.Classification)
	}
	if b.Records == nil {
		b.Records = RecordCounts(b.Params)
	}
	return b, nil
}
