package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/autolink/internal/model"
)

var timeNow = time.Now

var seasonsCount int

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "List recent season keys, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, s := range model.RecentSeasons(timeNow(), seasonsCount) {
			fmt.Println(s)
		}
		return nil
	},
}

func init() {
	seasonsCmd.Flags().IntVar(&seasonsCount, "count", 8, "number of seasons to list")
	rootCmd.AddCommand(seasonsCmd)
}
