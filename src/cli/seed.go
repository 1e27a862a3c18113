package cli

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/cache"
	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/seed"
	"github.com/spf13/cobra"
)

func init() {
	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Fill the cache with a made-up course, for trying things out without Canvas",
		Run: func(cmd *cobra.Command, args []string) {
			courseID := requireCourse()
			topics, _ := cmd.Flags().GetInt("topics")
			posts, _ := cmd.Flags().GetInt("posts")
			randSeed, _ := cmd.Flags().GetInt64("seed")
			if randSeed == 0 {
				randSeed = time.Now().UnixNano()
			}

			ctx := newContext()
			store, err := cache.New(ctx, config.Config.Cache)
			exitOnError(err, "Failed to open cache")
			defer store.Close()

			course := seed.Course(seed.CourseInput{
				Topics:        topics,
				PostsPerTopic: posts,
				ReplyChance:   0.6,
				EmbedReplies:  true,
				Rand:          rand.New(rand.NewSource(randSeed)),
			})
			exitOnError(store.Put(ctx, courseID, course), "Failed to write seed data")

			fmt.Printf("Cached %d made-up posts for course %s.\n", len(course), courseID)
		},
	}
	seedCommand.Flags().Int("topics", 4, "number of topics")
	seedCommand.Flags().Int("posts", 10, "posts per topic")
	seedCommand.Flags().Int64("seed", 0, "random seed (default: random)")
	RootCommand.AddCommand(seedCommand)
}
