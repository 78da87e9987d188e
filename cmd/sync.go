package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/reconcile"
)

var syncSeason string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the saved links of a season's already linked anime",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "link")
		if err != nil {
			return err
		}
		defer env.Close()

		season, err := resolveSeason(syncSeason)
		if err != nil {
			return err
		}

		tally, err := syncSeasonLinks(ctx, env.Catalog, season)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d links (%d failed)\n", tally.OK, tally.Failed)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSeason, "season", "", "season key, e.g. SPRING_2024 (default current season)")
	rootCmd.AddCommand(syncCmd)
}

// syncSeasonLinks syncs every anime of season that already has a link.
func syncSeasonLinks(ctx context.Context, cat linkCatalog, season model.SeasonKey) (reconcile.Tally, error) {
	sources, err := cat.SourcesBySeason(ctx, season)
	if err != nil {
		return reconcile.Tally{}, eris.Wrap(err, "sync: load season")
	}
	links, err := cat.AlreadyLinked(ctx)
	if err != nil {
		return reconcile.Tally{}, eris.Wrap(err, "sync: load existing links")
	}

	var items []model.BatchItemState
	for _, src := range sources {
		if _, ok := links[src.ID]; !ok {
			continue
		}
		items = append(items, model.BatchItemState{
			SourceID: src.ID,
			Title:    src.DisplayTitle(),
			Status:   model.ItemAlreadyLinked,
		})
	}
	return reconcile.SyncAll(ctx, cat, items, links), nil
}
