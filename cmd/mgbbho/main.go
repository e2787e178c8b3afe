package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/minovsor/mgb-bho-ds/internal/config"
	"github.com/minovsor/mgb-bho-ds/internal/logger"
	"github.com/minovsor/mgb-bho-ds/internal/pipeline"
	"github.com/minovsor/mgb-bho-ds/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mgbbho",
		Short: "Associate river network segments with coarse model catchments",
	}
	configPath string
	noProgress bool
	pruneRun   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the stage progress bar")

	runsCmd.Flags().StringVar(&pruneRun, "prune", "", "Delete every snapshot of the given run id")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
}

// setup loads the configuration, the logger and the snapshot store.
func setup() (*config.Config, storage.Store) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, nil)

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Storage.Driver, err)
	}
	return cfg, store
}

// withProgress draws one bar tick per finished stage.
func withProgress(r *pipeline.Runner, total int) func() {
	if noProgress {
		r.OnStage = func(stage string, done, total int) {
			fmt.Printf("  -> [%d/%d] %s\n", done, total, stage)
		}
		return func() {}
	}

	var current atomic.Value
	current.Store("starting")

	uiprogress.Start()
	bar := uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%-12s", current.Load().(string))
	})
	r.OnStage = func(stage string, done, total int) {
		current.Store(stage)
		bar.Incr()
	}
	return uiprogress.Stop
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run the full classification and write every output",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// 1. Initialize config and store
		cfg, store := setup()
		defer store.Close()

		// 2. Run the pipeline
		runner := pipeline.NewRunner(cfg, store)
		fmt.Printf("🚀 Classifying %s against %s...\n", cfg.Input.Segments, cfg.Input.Catchments)
		start := time.Now()
		done := withProgress(runner, len(runner.StageNames()))
		res, err := runner.Run(ctx)
		done()
		if err != nil {
			log.Fatalf("Classification failed: %v", err)
		}

		// 3. Summary
		fmt.Printf("✅ Run %s finished in %v. Classified %d segments.\n", res.RunID, time.Since(start), len(res.Classification))
		p := res.Partition
		fmt.Printf("  -> type1=%d type2=%d type3=%d type4=%d (unresolved %d)\n",
			len(p.Direct), len(p.Route), len(p.Background), len(p.Candidates), len(res.Reconciliation.Unresolved))
		if p.Mismatch() {
			fmt.Printf("⚠️ Coverage mismatch: %d classified, domain has %d segments.\n", p.Total(), p.DomainSize)
		}
		if cfg.Output.Dir != "" {
			fmt.Printf("💾 Outputs written to %s\n", cfg.Output.Dir)
		}
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Run type-1 selection only and write the source and filtered tables",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, store := setup()
		defer store.Close()

		runner := pipeline.NewRunner(cfg, store)
		fmt.Println("🔍 Selecting type-1 segments...")
		res, err := runner.Select(ctx)
		if err != nil {
			log.Fatalf("Selection failed: %v", err)
		}

		for _, p := range res.Passes {
			fmt.Printf("  -> %-20s visited=%d selected=%d replaced=%d cleared=%d (%d -> %d)\n",
				p.Pass, p.Stats.Visited, p.Stats.Selected, p.Stats.Replaced, p.Stats.Cleared, p.SelectedBefore, p.SelectedAfter)
		}
		fmt.Printf("✅ Run %s: %d source rows, %d accepted type-1 segments.\n", res.RunID, len(res.SourceTable), len(res.Matches))
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print the report of a persisted run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, store := setup()
		defer store.Close()

		ctx := context.Background()
		codec := storage.Codec{Compress: cfg.Storage.Compress}
		rep, err := pipeline.LoadReport(ctx, store, codec, args[0])
		if err != nil {
			log.Fatalf("Failed to load report: %v", err)
		}
		rep.Print()

		stages, err := pipeline.Stages(ctx, store, args[0])
		if err != nil {
			log.Fatalf("Failed to list snapshots: %v", err)
		}
		fmt.Printf("💾 Snapshots: %v\n", stages)

		bundle, err := pipeline.LoadBundle(rep)
		if err != nil {
			fmt.Printf("⚠️ Bundle not available: %v\n", err)
			return
		}
		fmt.Printf("📦 Bundle: segments=%v records=%v unresolved=%d\n", bundle.Counts, bundle.Records, len(bundle.Unresolved))
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted runs or prune one with --prune",
	Run: func(cmd *cobra.Command, args []string) {
		_, store := setup()
		defer store.Close()

		ctx := context.Background()
		if pruneRun != "" {
			if err := pipeline.PruneRun(ctx, store, pruneRun); err != nil {
				log.Fatalf("Failed to prune run: %v", err)
			}
			fmt.Printf("🗑️ Pruned run %s\n", pruneRun)
			return
		}

		runs, err := pipeline.ListRuns(ctx, store)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("📭 No runs stored.")
			return
		}
		for _, id := range runs {
			fmt.Println(id)
		}
	},
}
