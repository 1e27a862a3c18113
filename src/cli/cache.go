package cli

import (
	"fmt"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/ansicolor"
	"github.com/cdil-bc/canvas-discussions/src/cache"
	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/spf13/cobra"
)

func init() {
	cacheCommand := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local copy of a course's discussions",
	}
	RootCommand.AddCommand(cacheCommand)

	statusCommand := &cobra.Command{
		Use:   "status",
		Short: "Show when the course was last fetched",
		Run: func(cmd *cobra.Command, args []string) {
			courseID := requireCourse()
			ctx := newContext()
			store, err := cache.New(ctx, config.Config.Cache)
			exitOnError(err, "Failed to open cache")
			defer store.Close()

			entry, ok, err := store.Get(ctx, courseID)
			exitOnError(err, "Failed to read cache")
			if !ok {
				fmt.Printf("Nothing cached for course %s.\n", courseID)
				return
			}
			fmt.Printf("Course %s: %s%d posts%s, last refreshed %s (%s)\n",
				courseID,
				ansicolor.Bold, len(entry.Posts), ansicolor.Reset,
				entry.Timestamp.In(exportLocation()).Format(config.Config.Export.TimeFormat),
				humanizeAge(time.Since(entry.Timestamp)),
			)
		},
	}
	cacheCommand.AddCommand(statusCommand)

	clearCommand := &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached copy, so the next command fetches from Canvas",
		Run: func(cmd *cobra.Command, args []string) {
			courseID := requireCourse()
			ctx := newContext()
			store, err := cache.New(ctx, config.Config.Cache)
			exitOnError(err, "Failed to open cache")
			defer store.Close()

			exitOnError(store.Clear(ctx, courseID), "Failed to clear cache")
			fmt.Printf("Cleared cached discussions for course %s.\n", courseID)
		},
	}
	cacheCommand.AddCommand(clearCommand)
}
