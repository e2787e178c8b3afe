package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/export"
	"github.com/minovsor/mgb-bho-ds/internal/report"
	"github.com/minovsor/mgb-bho-ds/internal/storage"
)

// BundleFile is the name of the exported bundle inside the output dir.
const BundleFile = "params.json"

// ErrStaleBundle is returned when the bundle in a run's output dir was
// written by another run.
var ErrStaleBundle = errors.New("bundle belongs to another run")

// ListRuns returns the ids of every run with at least one snapshot.
func ListRuns(ctx context.Context, s storage.SnapshotStore) ([]string, error) {
	keys, err := s.List(ctx, "run/")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		id, _, ok := storage.SplitKey(k)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// LoadReport reloads the report persisted at the end of a run.
func LoadReport(ctx context.Context, s storage.SnapshotStore, c storage.Codec, runID string) (*report.RunReport, error) {
	var rep report.RunReport
	if err := storage.Load(ctx, s, c, storage.Key(runID, StageReport), &rep); err != nil {
		return nil, fmt.Errorf("failed to load report of run %s: %w", runID, err)
	}
	return &rep, nil
}

// Stages returns the stage names persisted for a run.
func Stages(ctx context.Context, s storage.SnapshotStore, runID string) ([]string, error) {
	keys, err := s.List(ctx, storage.Key(runID, ""))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if _, stage, ok := storage.SplitKey(k); ok {
			out = append(out, stage)
		}
	}
	return out, nil
}

// PruneRun deletes every snapshot of a run.
func PruneRun(ctx context.Context, s storage.SnapshotStore, runID string) error {
	if runID == "" {
		return errors.New("empty run id")
	}
	if err := s.Delete(ctx, storage.Key(runID, "")); err != nil {
		return fmt.Errorf("failed to prune run %s: %w", runID, err)
	}
	return nil
}

// LoadBundle reads the bundle exported into the output dir recorded in
// rep. Later runs into the same dir overwrite it, so the run id must match.
func LoadBundle(rep *report.RunReport) (*export.Bundle, error) {
	b, err := export.Load(filepath.Join(rep.OutputDir, BundleFile))
	if err != nil {
		return nil, err
	}
	if b.RunID != rep.RunID {
		return nil, fmt.Errorf("%w: %s", ErrStaleBundle, b.RunID)
	}
	return b, nil
}
