package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autolink/internal/model"
)

var (
	manualAnimeID string
	manualTVDBID  string
	manualSeason  int
	manualName    string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Save a link to a known TheTVDB series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "link")
		if err != nil {
			return err
		}
		defer env.Close()

		saved, err := env.Catalog.SaveLink(ctx, model.Link{
			AnimeID:   manualAnimeID,
			TheTVDBID: manualTVDBID,
			Season:    manualSeason,
			Name:      manualName,
		})
		if err != nil {
			return eris.Wrap(err, "manual link")
		}

		fmt.Printf("Saved link %s: anime %s -> TheTVDB %s season %d\n",
			saved.ID, saved.AnimeID, saved.TheTVDBID, saved.Season)
		return nil
	},
}

func init() {
	manualCmd.Flags().StringVar(&manualAnimeID, "anime-id", "", "internal anime id")
	manualCmd.Flags().StringVar(&manualTVDBID, "tvdb-id", "", "TheTVDB series id")
	manualCmd.Flags().IntVar(&manualSeason, "season", 1, "TheTVDB season number")
	manualCmd.Flags().StringVar(&manualName, "name", "", "display name stored with the link")
	_ = manualCmd.MarkFlagRequired("anime-id")
	_ = manualCmd.MarkFlagRequired("tvdb-id")
	rootCmd.AddCommand(manualCmd)
}
