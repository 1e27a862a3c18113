package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/jobs"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/scheduler"
	"github.com/spf13/cobra"
)

func init() {
	watchCommand := &cobra.Command{
		Use:   "watch",
		Short: "Re-fetch and export the course on a schedule",
		Long: `Runs until interrupted, refreshing the course from Canvas and writing a new
export on a cron schedule ($EXPORT_SCHEDULE, or --schedule). Each run skips
the cache, so exports always reflect Canvas as of that run.`,
		Run: func(cmd *cobra.Command, args []string) {
			defer logging.LogPanics(nil)

			creds := requireCredentials()
			ctx := newContext()
			fetcher, closeFetcher := newFetcher(ctx)
			defer closeFetcher()

			schedule, _ := cmd.Flags().GetString("schedule")
			if schedule == "" {
				schedule = config.Config.Export.Schedule
			}
			runNow, _ := cmd.Flags().GetBool("now")

			var opts exportOptions
			opts.Dir, _ = cmd.Flags().GetString("dir")
			opts.ToS3, _ = cmd.Flags().GetBool("s3")
			opts.HTML, _ = cmd.Flags().GetBool("html")
			opts.Refresh = true

			task := func(ctx context.Context) error {
				locations, err := runExport(ctx, fetcher, creds, opts)
				if err != nil {
					return err
				}
				logging.ExtractLogger(ctx).Info().Strs("files", locations).Msg("Exported discussions")
				return nil
			}

			s := scheduler.New(exportLocation(), 30*time.Minute)
			exitOnError(s.Add("export", schedule, task), "Failed to schedule export")

			backgroundJobs := jobs.Jobs{s.Start()}
			if runNow {
				backgroundJobs = append(backgroundJobs, startInitialExport(ctx, s, task))
			}
			for _, entry := range s.Entries() {
				logging.Info().Str("task", entry.Name).Time("next", entry.NextRun).Msg("Waiting for next run")
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt)
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down")

			go func() {
				<-signals // Second SIGINT (force quit)
				logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly quit")
				os.Exit(1)
			}()

			unfinished := backgroundJobs.CancelAndWait(10 * time.Second)
			if len(unfinished) == 0 {
				logging.Info().Msg("Background jobs closed gracefully")
			} else {
				logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
			}
		},
	}
	watchCommand.Flags().String("schedule", "", `cron schedule, e.g. "0 6 * * *" or "@every 6h" (default $EXPORT_SCHEDULE)`)
	watchCommand.Flags().Bool("now", false, "also export once immediately")
	watchCommand.Flags().String("dir", "", "directory to write exports to (default $EXPORT_DIR or .)")
	watchCommand.Flags().Bool("s3", false, "upload exports to the EXPORT_S3_BUCKET bucket")
	watchCommand.Flags().Bool("html", false, "also write HTML previews")
	RootCommand.AddCommand(watchCommand)
}

// Runs the export once right away, as a Job so that shutdown can cancel it
// like any scheduled run.
func startInitialExport(ctx context.Context, s *scheduler.Scheduler, task scheduler.Task) *jobs.Job {
	job := jobs.Start("initial export", func(jobCtx context.Context) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-jobCtx.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
		return s.RunNow(runCtx, "export", task)
	})
	go func() {
		<-job.Finished()
		if err := job.Err(); err != nil {
			logging.ExtractLogger(ctx).Error().Err(err).Msg("Initial export failed")
		} else {
			logging.ExtractLogger(ctx).Info().Msg("Initial export finished")
		}
	}()
	return job
}
