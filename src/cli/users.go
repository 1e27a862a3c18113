package cli

import (
	"os"

	"github.com/cdil-bc/canvas-discussions/src/users"
	"github.com/spf13/cobra"
)

func init() {
	usersCommand := &cobra.Command{
		Use:   "users",
		Short: "List who has posted in the course's discussions",
		Run: func(cmd *cobra.Command, args []string) {
			creds := requireCredentials()
			ctx := newContext()
			fetcher, closeFetcher := newFetcher(ctx)
			defer closeFetcher()

			search, _ := cmd.Flags().GetString("search")

			res, err := fetcher.FetchDiscussions(ctx, creds)
			exitOnError(err, "Failed to fetch discussions")

			summaries := users.Filter(users.Summarize(res.Posts), search)
			err = users.WriteReport(os.Stdout, summaries, users.ReportOptions{
				CourseName: fetcher.FetchCourseName(ctx, creds),
				Location:   exportLocation(),
			})
			exitOnError(err, "Failed to write report")
		},
	}
	usersCommand.Flags().StringP("search", "s", "", "only show users whose name contains this")
	RootCommand.AddCommand(usersCommand)
}
