package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/reconcile"
	"github.com/sells-group/autolink/internal/report"
	"github.com/sells-group/autolink/internal/resolve"
	"github.com/sells-group/autolink/internal/store"
)

var (
	batchSeason      string
	batchSave        bool
	batchSaveAll     bool
	batchLimit       int
	batchReport      string
	batchRerunFailed string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Link every anime of a season to TheTVDB",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		opts, err := batchOptionsFromFlags()
		if err != nil {
			return err
		}

		result, err := runBatch(ctx, env, opts, &consoleObserver{})
		if err != nil {
			return err
		}

		if batchSaveAll && !opts.Save {
			tally := reconcile.SaveAll(context.WithoutCancel(ctx), env.Catalog, result.Items)
			fmt.Printf("Saved %d links (%d failed)\n", tally.OK, tally.Failed)
		}

		if batchReport != "" {
			r := report.Build(opts.Season, result.Items, result.Progress)
			if err := report.Write(batchReport, r); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", batchReport))
		}

		printSummary(result)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchSeason, "season", "", "season key, e.g. SPRING_2024 (default current season)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "save each link as soon as it is matched (default from config)")
	batchCmd.Flags().BoolVar(&batchSaveAll, "save-all", false, "save every matched link after the run finishes")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of anime to process (0 = no limit)")
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write item states to a .json, .yaml or .xlsx file")
	batchCmd.Flags().StringVar(&batchRerunFailed, "rerun-failed", "", "re-run only the items that failed in the given run")
	rootCmd.AddCommand(batchCmd)
}

// batchOptions selects the sources and save policy of one batch run.
type batchOptions struct {
	Season      model.SeasonKey
	Save        bool
	Limit       int
	RerunFailed string
}

func batchOptionsFromFlags() (batchOptions, error) {
	opts := batchOptions{
		Save:        batchSave || cfg.Batch.SaveOnSuccess,
		Limit:       batchLimit,
		RerunFailed: batchRerunFailed,
	}
	if opts.Limit == 0 {
		opts.Limit = cfg.Batch.Limit
	}
	season, err := resolveSeason(batchSeason)
	if err != nil {
		return opts, err
	}
	opts.Season = season
	return opts, nil
}

// resolveSeason parses s, defaulting to the current season when empty.
func resolveSeason(s string) (model.SeasonKey, error) {
	if s == "" {
		return model.CurrentSeason(timeNow()), nil
	}
	return model.ParseSeasonKey(s)
}

// runBatch loads the sources for opts, records the run when a store is
// configured, and drives reconciliation to completion or cancellation.
func runBatch(ctx context.Context, env *appEnv, opts batchOptions, obs reconcile.Observer) (*reconcile.Result, error) {
	sources, err := loadSources(ctx, env, opts)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(sources) > opts.Limit {
		sources = sources[:opts.Limit]
	}

	linked, err := env.Catalog.AlreadyLinked(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "batch: load existing links")
	}

	runID := uuid.NewString()
	observers := []reconcile.Observer{obs}
	if env.Store != nil {
		run, err := env.Store.CreateRun(ctx, opts.Season, len(sources))
		if err != nil {
			return nil, eris.Wrap(err, "batch: create run")
		}
		runID = run.ID
		observers = append(observers, store.NewRecorder(ctx, env.Store, runID))
	}
	if env.Events != nil {
		observers = append(observers, env.Events.ForRun(runID))
	}

	zap.L().Info("processing batch",
		zap.String("run_id", runID),
		zap.String("season", string(opts.Season)),
		zap.Int("sources", len(sources)),
		zap.Int("already_linked", len(linked)),
		zap.Bool("save", opts.Save),
	)

	driverOpts := []reconcile.Option{reconcile.WithObserver(reconcile.Multi(observers...))}
	if opts.Save {
		driverOpts = append(driverOpts, reconcile.WithSaver(env.Catalog))
	}
	driver := reconcile.NewDriver(resolve.NewResolver(env.Catalog), driverOpts...)

	result := driver.Run(ctx, sources, linked)

	zap.L().Info("batch complete",
		zap.String("run_id", runID),
		zap.Int("processed", result.Progress.Processed),
		zap.Int("success", result.Progress.SuccessCount),
		zap.Int("failed", result.Progress.FailCount),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

// loadSources returns the season's records, or the failed items of an
// earlier run when a re-run was requested.
func loadSources(ctx context.Context, env *appEnv, opts batchOptions) ([]model.SourceRecord, error) {
	if opts.RerunFailed == "" {
		sources, err := env.Catalog.SourcesBySeason(ctx, opts.Season)
		if err != nil {
			return nil, eris.Wrap(err, "batch: load season")
		}
		return sources, nil
	}

	if env.Store == nil {
		return nil, eris.New("batch: --rerun-failed requires a store")
	}
	items, err := env.Store.ListItems(ctx, opts.RerunFailed, model.ItemFailed)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: load failed items of run %s", opts.RerunFailed)
	}

	sources := make([]model.SourceRecord, 0, len(items))
	for _, it := range items {
		src, err := env.Catalog.SourceLookup(ctx, it.SourceID)
		if err != nil {
			zap.L().Warn("skipping failed item", zap.String("source_id", it.SourceID), zap.Error(err))
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func printSummary(result *reconcile.Result) {
	p := result.Progress
	state := "complete"
	if result.Cancelled {
		state = "cancelled"
	}
	fmt.Printf("Batch %s: %d/%d processed (%s), %d linked, %d failed, %d already linked\n",
		state,
		p.Processed,
		p.Total,
		formatPercent(p.Percent()),
		p.SuccessCount,
		p.FailCount,
		len(result.ByStatus(model.ItemAlreadyLinked)),
	)
}

func formatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}
