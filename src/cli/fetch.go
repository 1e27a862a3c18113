package cli

import (
	"fmt"

	"github.com/cdil-bc/canvas-discussions/src/ansicolor"
	"github.com/cdil-bc/canvas-discussions/src/discussions"
	"github.com/cdil-bc/canvas-discussions/src/threads"
	"github.com/spf13/cobra"
)

func init() {
	fetchCommand := &cobra.Command{
		Use:   "fetch",
		Short: "Download the course's discussions into the cache",
		Run: func(cmd *cobra.Command, args []string) {
			creds := requireCredentials()
			ctx := newContext()
			fetcher, closeFetcher := newFetcher(ctx)
			defer closeFetcher()

			refresh, _ := cmd.Flags().GetBool("refresh")

			var res *discussions.Result
			var err error
			if refresh {
				res, err = fetcher.Refresh(ctx, creds)
			} else {
				res, err = fetcher.FetchDiscussions(ctx, creds)
			}
			exitOnError(err, "Failed to fetch discussions")

			topics, err := threads.Topics(res.Posts)
			exitOnError(err, "Fetched discussions are malformed")

			source := ansicolor.Green + "freshly fetched from Canvas" + ansicolor.Reset
			if res.Source == discussions.SourceCache {
				source = ansicolor.Yellow + "from the cache" + ansicolor.Reset + " (use --refresh to fetch again)"
			}
			fmt.Printf("%s%d posts%s in %d topics, %s\n", ansicolor.Bold, len(res.Posts), ansicolor.Reset, len(topics), source)
		},
	}
	fetchCommand.Flags().Bool("refresh", false, "ignore the cache and fetch everything again")
	RootCommand.AddCommand(fetchCommand)
}
