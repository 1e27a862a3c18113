package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/ansicolor"
	"github.com/cdil-bc/canvas-discussions/src/cache"
	"github.com/cdil-bc/canvas-discussions/src/canvas"
	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/discussions"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var RootCommand = &cobra.Command{
	Use:   "canvas-discussions",
	Short: "Browse and export a Canvas course's discussions",
	Long: `Fetches every discussion topic, entry, and reply in a Canvas course, caches
them locally, and exports them as a single threaded Markdown document.

Credentials come from CANVAS_API_URL, CANVAS_API_KEY, and CANVAS_COURSE_ID
(or a .env file), or the flags below.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyFlagOverrides(cmd)
	},
}

func init() {
	flags := RootCommand.PersistentFlags()
	flags.String("api-url", "", "Canvas API URL, e.g. https://canvas.example.edu/api/v1")
	flags.String("api-key", "", "Canvas API access token")
	flags.StringP("course", "c", "", "Canvas course id")
	flags.String("cache", "", "cache backend (sqlite, redis, postgres)")
	flags.Bool("no-color", false, "disable colored output")
}

func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if v, _ := flags.GetString("api-url"); v != "" {
		config.Config.Canvas.APIURL = v
	}
	if v, _ := flags.GetString("api-key"); v != "" {
		config.Config.Canvas.APIKey = v
	}
	if v, _ := flags.GetString("course"); v != "" {
		config.Config.Canvas.CourseID = v
	}
	if v, _ := flags.GetString("cache"); v != "" {
		config.Config.Cache.Backend = config.CacheBackend(v)
	}
	if v, _ := flags.GetBool("no-color"); v {
		ansicolor.Disable()
	}
}

// A context whose logger tags everything with an id for this run, so runs
// can be told apart in a shared log file.
func newContext() context.Context {
	logger := logging.With().Str("run", uuid.New().String()).Logger()
	return logging.AttachLoggerToContext(&logger, context.Background())
}

func credentials() discussions.Credentials {
	return discussions.CredentialsFromConfig(config.Config.Canvas)
}

// Opens the configured cache and a rate-limited Canvas client.
func newFetcher(ctx context.Context) (*discussions.Fetcher, func()) {
	store, err := cache.New(ctx, config.Config.Cache)
	exitOnError(err, "Failed to open cache")

	return &discussions.Fetcher{
		Store:   store,
		Proxy:   canvas.NewClient(config.Config.Canvas.RequestsPerSecond, config.Config.Canvas.MaxRetries),
		PerPage: config.Config.Canvas.PerPage,
	}, func() { store.Close() }
}

func requireCredentials() discussions.Credentials {
	creds := credentials()
	if err := creds.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n\nSet CANVAS_API_URL, CANVAS_API_KEY, and CANVAS_COURSE_ID (or use --api-url, --api-key, and --course).\n", ansicolor.Red, err, ansicolor.Reset)
		os.Exit(1)
	}
	return creds
}

func requireCourse() string {
	courseID := config.Config.Canvas.CourseID
	if courseID == "" {
		fmt.Fprintf(os.Stderr, "%sA course id is required.%s Set CANVAS_COURSE_ID or use --course.\n", ansicolor.Red, ansicolor.Reset)
		os.Exit(1)
	}
	return courseID
}

func exitOnError(err error, msg string) {
	if err != nil {
		logging.Error().Err(err).Msg(msg)
		os.Exit(1)
	}
}

func exportLocation() *time.Location {
	loc, err := time.LoadLocation(config.Config.Export.TimeZone)
	if err != nil {
		logging.Warn().Err(err).Str("timezone", config.Config.Export.TimeZone).Msg("Unknown time zone; using local time")
		return time.Local
	}
	return loc
}

func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
