package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minovsor/mgb-bho-ds/internal/classify"
	"github.com/minovsor/mgb-bho-ds/internal/config"
	"github.com/minovsor/mgb-bho-ds/internal/export"
	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/logger"
	"github.com/minovsor/mgb-bho-ds/internal/storage"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

// basinConfig writes a two-headwater basin draining into catchment 30,
// plus a coastal branch with no type-1 segment below it.
func basinConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input.Segments = writeFile(t, dir, "segments.csv",
		"cotrecho,nutrjus,nuareamont,dedominial",
		"1,3,1000,",
		"2,3,1200,",
		"3,4,2300,",
		"4,5,2500,",
		"5,0,3000,",
		"6,1,100,",
		"7,4,1500,",
		"8,9,1100,",
		"9,0,1200,Linha de Costa",
	)
	cfg.Input.Catchments = writeFile(t, dir, "catchments.csv",
		"mini,minijus,ordem,area_km2,aream_km2",
		"10,30,1,1000,1000",
		"20,30,1,1200,1200",
		"30,-1,2,800,3000",
	)
	cfg.Input.Domain = writeFile(t, dir, "domain.csv",
		"cotrecho,mini",
		"1,10", "6,10", "2,20", "3,30", "4,30", "5,30", "7,30", "8,30", "9,30",
	)
	cfg.Input.Type1Table = writeFile(t, dir, "type1.csv",
		"mini,bho_cotrecho,codigo_otto,bho_nuareamont,mini_areamont,diffp_areamont,flag_mini_in",
		"10,1,,1000,1000,0,True",
		"20,2,,1200,1200,0,True",
		"20,1,,1000,1200,-16.7,False",
		"30,7,,1500,3000,-50,True",
		"30,5,,3000,3000,0,True",
	)
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Metrics = "mgbbho.prom"
	cfg.Output.Report = "report.json"
	return cfg
}

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	s, err := storage.NewSQLStore("sqlite3", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunner_Run(t *testing.T) {
	logger.Setup("error", "", io.Discard)
	cfg := basinConfig(t)
	store := newStore(t)
	ctx := context.Background()

	r := NewRunner(cfg, store)
	var seen []string
	r.OnStage = func(stage string, done, total int) {
		seen = append(seen, stage)
		assert.Equal(t, len(r.StageNames()), total)
	}

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.StageNames(), seen)

	// 1. Final classification
	want := map[int]classify.Assignment{
		1: {Catchment: 10, Tag: classify.TagDirect},
		2: {Catchment: 20, Tag: classify.TagDirect},
		5: {Catchment: 30, Tag: classify.TagDirect},
		3: {Catchment: 30, Tag: classify.TagRoute},
		4: {Catchment: 30, Tag: classify.TagRoute},
		6: {Catchment: 10, Tag: classify.TagBackground},
		7: {Catchment: 30, Tag: classify.TagFallback},
		8: {Catchment: 30, Tag: classify.TagFallback},
		9: {Catchment: 30, Tag: classify.TagFallback},
	}
	assert.Equal(t, want, res.Classification)
	assert.False(t, res.Partition.Mismatch())
	assert.Equal(t, []int{8, 9}, res.Reconciliation.Unresolved)
	assert.True(t, res.Network.Segments[mustIndex(t, res.Network, 9)].Coastal)

	// 2. Output files
	for _, name := range []string{"classification.csv", "params.json", "type1.csv", "mgbbho.prom", "report.json"} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
	bundle, err := export.Load(filepath.Join(cfg.Output.Dir, "params.json"))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, bundle.RunID)
	assert.Equal(t, 3, bundle.Counts["fallback"])

	// 3. Persisted snapshots
	runs, err := ListRuns(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{res.RunID}, runs)

	stages, err := Stages(ctx, store, res.RunID)
	require.NoError(t, err)
	for _, st := range []string{"domain", "type1", "screening", "routes", "partition", "params", "classification", StageReport} {
		assert.Contains(t, stages, st)
	}

	var final map[int]classify.Assignment
	require.NoError(t, storage.Load(ctx, store, r.Codec, storage.Key(res.RunID, "classification"), &final))
	assert.Equal(t, want, final)

	rep, err := LoadReport(ctx, store, r.Codec, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, len(r.StageNames()), rep.Summary.StageCount)
	assert.Empty(t, rep.Summary.FailedStage)
	assert.Equal(t, 3, rep.Summary.Segments["direct"])
	require.NotNil(t, rep.Summary.Coverage)
	assert.Equal(t, res.Partition.DomainSize, rep.Summary.Coverage.Domain)
	assert.Equal(t, len(res.Reconciliation.Unresolved), rep.Summary.Unresolved)

	// 4. Bundle reload and pruning
	b, err := LoadBundle(rep)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"direct": 3, "route": 2, "background": 1, "fallback": 3}, b.Records)

	rep.RunID = "another-run"
	_, err = LoadBundle(rep)
	assert.ErrorIs(t, err, ErrStaleBundle)

	require.NoError(t, PruneRun(ctx, store, res.RunID))
	runs, err = ListRuns(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Error(t, PruneRun(ctx, store, ""))
}

func TestRunner_Select(t *testing.T) {
	logger.Setup("error", "", io.Discard)
	cfg := basinConfig(t)

	res, err := NewRunner(cfg, nil).Select(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)
	assert.Len(t, res.SourceTable, 5)
	for _, m := range res.Matches {
		assert.Equal(t, 1.0, m.AreaRatio)
		assert.NotEqual(t, 7, m.Segment)
	}
	assert.Equal(t, 1, res.Matches[0].Segment)
	assert.Nil(t, res.Classification)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "type1.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "classification.csv"))
}

func TestRunner_Errors(t *testing.T) {
	logger.Setup("error", "", io.Discard)

	t.Run("Missing domain", func(t *testing.T) {
		cfg := basinConfig(t)
		cfg.Input.Domain = ""
		_, err := NewRunner(cfg, nil).Run(context.Background())
		assert.ErrorIs(t, err, ErrNoDomain)
	})

	t.Run("Branching segment halts the run", func(t *testing.T) {
		cfg := basinConfig(t)
		data, err := os.ReadFile(cfg.Input.Segments)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cfg.Input.Segments, append(data, []byte("3,7,2300,\n")...), 0644))

		res, err := NewRunner(cfg, nil).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, graph.ErrTopologyIntegrity)
		require.NotNil(t, res.Report)
		assert.Equal(t, "error", res.Report.Stages[len(res.Report.Stages)-1].Status)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cfg := basinConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewRunner(cfg, nil).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func mustIndex(t *testing.T, n *graph.Network, id int) int {
	t.Helper()
	i, ok := n.SegmentIndex(id)
	require.True(t, ok)
	return i
}
