package export

import (
	"context"

	"github.com/cdil-bc/canvas-discussions/src/discussions"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/cdil-bc/canvas-discussions/src/perf"
	"github.com/cdil-bc/canvas-discussions/src/threads"
)

// Where posts and topic metadata come from. Implemented by
// discussions.Fetcher.
type Source interface {
	FetchDiscussions(ctx context.Context, creds discussions.Credentials) (*discussions.Result, error)
	Refresh(ctx context.Context, creds discussions.Credentials) (*discussions.Result, error)
	FetchTopics(ctx context.Context, creds discussions.Credentials) ([]models.RawTopic, error)
}

var _ Source = &discussions.Fetcher{}

type Document struct {
	CourseID string
	Source   discussions.Source
	Topics   []*models.Topic
	Posts    int
	Markdown string
}

func (d *Document) Filename() string {
	return Filename(d.CourseID)
}

/*
Fetches a course's discussions and renders them as one Markdown document,
with topics in due date order.

With refresh set, the cache is skipped and the course is downloaded again.

Due dates come from the topic listing. Posts downloaded from Canvas carry
the listing they were fetched with; cached posts need a fresh one. If that
listing can't be fetched, the export still goes ahead, with every topic
treated as undated.
*/
func Build(ctx context.Context, src Source, creds discussions.Credentials, renderer *Renderer, refresh bool) (*Document, error) {
	log := logging.ExtractLogger(ctx)
	rp := perf.ExtractFromContext(ctx)

	fetch := src.FetchDiscussions
	if refresh {
		fetch = src.Refresh
	}

	rp.StartBlock("fetch", "discussions")
	res, err := fetch(ctx, creds)
	rp.EndBlock()
	if err != nil {
		return nil, oops.New(err, "failed to fetch discussions")
	}

	rp.StartBlock("threads", "build trees")
	topics, err := threads.Topics(res.Posts)
	rp.EndBlock()
	if err != nil {
		return nil, err
	}

	raw := res.Topics
	if raw == nil {
		rp.StartBlock("fetch", "due dates")
		raw, err = src.FetchTopics(ctx, creds)
		rp.EndBlock()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Couldn't fetch topic due dates; exporting without them")
	} else {
		threads.MergeDueDates(topics, raw)
		threads.SortTopics(topics)
	}

	rp.StartBlock("render", "markdown")
	markdown := renderer.Render(topics)
	rp.EndBlock()

	return &Document{
		CourseID: creds.CourseID,
		Source:   res.Source,
		Topics:   topics,
		Posts:    len(res.Posts),
		Markdown: markdown,
	}, nil
}
