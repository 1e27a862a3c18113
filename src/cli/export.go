package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/discussions"
	"github.com/cdil-bc/canvas-discussions/src/export"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/cdil-bc/canvas-discussions/src/perf"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	Dir     string
	ToS3    bool
	HTML    bool
	Refresh bool
}

func init() {
	exportCommand := &cobra.Command{
		Use:   "export",
		Short: "Export every discussion in the course as one Markdown file",
		Run: func(cmd *cobra.Command, args []string) {
			creds := requireCredentials()
			ctx := newContext()
			fetcher, closeFetcher := newFetcher(ctx)
			defer closeFetcher()

			var opts exportOptions
			opts.Dir, _ = cmd.Flags().GetString("dir")
			opts.ToS3, _ = cmd.Flags().GetBool("s3")
			opts.HTML, _ = cmd.Flags().GetBool("html")
			opts.Refresh, _ = cmd.Flags().GetBool("refresh")

			locations, err := runExport(ctx, fetcher, creds, opts)
			exitOnError(err, "Export failed")
			for _, loc := range locations {
				fmt.Println(loc)
			}
		},
	}
	exportCommand.Flags().String("dir", "", "directory to write the export to (default $EXPORT_DIR or .)")
	exportCommand.Flags().Bool("s3", false, "upload to the EXPORT_S3_BUCKET bucket instead of writing a file")
	exportCommand.Flags().Bool("html", false, "also write an HTML preview alongside the Markdown")
	exportCommand.Flags().Bool("refresh", false, "ignore the cache and fetch everything again")
	RootCommand.AddCommand(exportCommand)
}

func newSink(ctx context.Context, opts exportOptions) (export.Sink, error) {
	if opts.ToS3 {
		if !config.Config.Export.S3.Enabled() {
			return nil, oops.New(nil, "no S3 bucket configured; set EXPORT_S3_BUCKET")
		}
		return export.NewS3Sink(ctx, config.Config.Export.S3)
	}
	dir := opts.Dir
	if dir == "" {
		dir = config.Config.Export.Dir
	}
	return export.FileSink{Dir: dir}, nil
}

// Fetches, renders, and saves a course export. Returns where each file went.
func runExport(ctx context.Context, fetcher *discussions.Fetcher, creds discussions.Credentials, opts exportOptions) ([]string, error) {
	rp := perf.NewRunPerf("export")
	ctx = perf.AttachToContext(rp, ctx)
	defer func() {
		rp.Finish()
		rp.Log(logging.ExtractLogger(ctx))
	}()

	sink, err := newSink(ctx, opts)
	if err != nil {
		return nil, err
	}

	renderer := export.NewRenderer(export.Options{
		Location:   exportLocation(),
		TimeFormat: config.Config.Export.TimeFormat,
	})
	doc, err := export.Build(ctx, fetcher, creds, renderer, opts.Refresh)
	if err != nil {
		return nil, err
	}
	logging.ExtractLogger(ctx).Info().
		Str("source", string(doc.Source)).
		Int("topics", len(doc.Topics)).
		Int("posts", doc.Posts).
		Msg("Rendered export")

	rp.StartBlock("write", doc.Filename())
	defer rp.EndBlock()

	var locations []string
	loc, err := sink.Write(ctx, doc.Filename(), export.MarkdownContentType, []byte(doc.Markdown))
	if err != nil {
		return nil, err
	}
	locations = append(locations, loc)

	if opts.HTML {
		title := fetcher.FetchCourseName(ctx, creds)
		if title == "" {
			title = "Course " + creds.CourseID
		}
		page, err := export.RenderHTML(title+" discussions", doc.Markdown)
		if err != nil {
			return nil, err
		}
		loc, err := sink.Write(ctx, strings.TrimSuffix(doc.Filename(), ".md")+".html", export.HTMLContentType, []byte(page))
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}

	return locations, nil
}
