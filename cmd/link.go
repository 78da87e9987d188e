package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/reconcile"
	"github.com/sells-group/autolink/internal/resolve"
)

var (
	linkAnimeID string
	linkSave    bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Find the TheTVDB series and season for one anime",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "link")
		if err != nil {
			return err
		}
		defer env.Close()

		item, err := linkOne(ctx, env, linkAnimeID, linkSave || cfg.Batch.SaveOnSuccess)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkAnimeID, "anime-id", "", "internal anime id")
	linkCmd.Flags().BoolVar(&linkSave, "save", false, "save the link when a match is found")
	_ = linkCmd.MarkFlagRequired("anime-id")
	rootCmd.AddCommand(linkCmd)
}

// linkOne reconciles a single anime through the same driver a batch uses,
// so messages and save behaviour match.
func linkOne(ctx context.Context, env *appEnv, animeID string, save bool) (model.BatchItemState, error) {
	src, err := env.Catalog.SourceLookup(ctx, animeID)
	if err != nil {
		return model.BatchItemState{}, eris.Wrap(err, "link")
	}

	linked, err := env.Catalog.AlreadyLinked(ctx)
	if err != nil {
		return model.BatchItemState{}, eris.Wrap(err, "link: load existing links")
	}

	opts := []reconcile.Option{reconcile.WithObserver(&consoleObserver{})}
	if save {
		opts = append(opts, reconcile.WithSaver(env.Catalog))
	}
	result := reconcile.NewDriver(resolve.NewResolver(env.Catalog), opts...).
		Run(ctx, []model.SourceRecord{src}, linked)
	if len(result.Items) == 0 {
		return model.BatchItemState{}, eris.Errorf("link: no result for %s", animeID)
	}
	return result.Items[0], nil
}
