package discussions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cdil-bc/canvas-discussions/src/cache"
	"github.com/cdil-bc/canvas-discussions/src/canvas"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

// Anything that can make an authenticated Canvas request. canvas.Client in
// production; fakes in tests.
type Proxy interface {
	Do(ctx context.Context, r canvas.Request) (*canvas.Response, error)
}

var _ Proxy = &canvas.Client{}

type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

type Result struct {
	Source Source
	Posts  []models.Post

	// The topic listing the posts were downloaded from. Only set when the
	// posts came from the network; the cache stores posts alone.
	Topics []models.RawTopic
}

type Fetcher struct {
	Store   cache.Store
	Proxy   Proxy
	PerPage int
}

/*
Returns every post in the course. A cached copy is returned as-is if there
is one; otherwise the whole course is downloaded and cached before
returning.

Downloading is all-or-nothing: if any page fails, the error is returned and
the cache is left exactly as it was.
*/
func (f *Fetcher) FetchDiscussions(ctx context.Context, creds Credentials) (*Result, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	log := logging.ExtractLogger(ctx).With().Str("course", creds.CourseID).Logger()

	entry, ok, err := f.Store.Get(ctx, creds.CourseID)
	if err != nil {
		return nil, oops.New(err, "failed to check cache")
	}
	if ok {
		log.Info().Time("fetched", entry.Timestamp).Int("posts", len(entry.Posts)).Msg("Using cached discussion data")
		return &Result{Source: SourceCache, Posts: entry.Posts}, nil
	}

	return f.fetchFromNetwork(ctx, creds)
}

/*
Downloads the course again, ignoring any cached copy. The cache is only
replaced once the download succeeds, so a failed refresh still leaves the
previous copy in place.
*/
func (f *Fetcher) Refresh(ctx context.Context, creds Credentials) (*Result, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	return f.fetchFromNetwork(ctx, creds)
}

func (f *Fetcher) fetchFromNetwork(ctx context.Context, creds Credentials) (*Result, error) {
	log := logging.ExtractLogger(ctx).With().Str("course", creds.CourseID).Logger()

	posts, topics, err := f.download(logging.AttachLoggerToContext(&log, ctx), creds)
	if err != nil {
		return nil, err
	}

	if err := f.Store.Put(ctx, creds.CourseID, posts); err != nil {
		return nil, oops.New(err, "failed to cache discussion data")
	}
	log.Info().Int("posts", len(posts)).Msg("Fetched discussion data from Canvas")

	return &Result{Source: SourceNetwork, Posts: posts, Topics: rawTopics(topics)}, nil
}

func (f *Fetcher) download(ctx context.Context, creds Credentials) ([]models.Post, []canvas.DiscussionTopic, error) {
	topics, err := f.fetchTopics(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	posts := []models.Post{}
	for _, topic := range topics {
		topicPosts, err := f.fetchTopicPosts(ctx, creds, topic)
		if err != nil {
			return nil, nil, err
		}
		posts = append(posts, topicPosts...)
	}
	return posts, topics, nil
}

func (f *Fetcher) fetchTopics(ctx context.Context, creds Credentials) ([]canvas.DiscussionTopic, error) {
	topics, err := paginate[canvas.DiscussionTopic](ctx, f.Proxy, creds, coursePath(creds.CourseID, "discussion_topics"), f.PerPage)
	if err != nil {
		return nil, oops.New(err, "failed to list discussion topics")
	}
	return topics, nil
}

// Lists the course's topics with their due dates, straight from Canvas.
func (f *Fetcher) FetchTopics(ctx context.Context, creds Credentials) ([]models.RawTopic, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	topics, err := f.fetchTopics(ctx, creds)
	if err != nil {
		return nil, err
	}
	return rawTopics(topics), nil
}

func rawTopics(topics []canvas.DiscussionTopic) []models.RawTopic {
	result := make([]models.RawTopic, 0, len(topics))
	for _, t := range topics {
		result = append(result, models.RawTopic{
			ID:           t.ID,
			Title:        t.Title,
			AssignmentID: t.AssignmentID,
			DueAt:        t.EffectiveDueAt(),
		})
	}
	return result
}

// Returns the course's display name, or an empty string if Canvas won't
// tell us. The name is decoration; failing to get it is not worth failing
// over.
func (f *Fetcher) FetchCourseName(ctx context.Context, creds Credentials) string {
	if err := creds.Check(); err != nil {
		return ""
	}
	res, err := f.Proxy.Do(ctx, canvas.Request{
		APIURL:   creds.APIURL,
		APIKey:   creds.APIKey,
		Endpoint: coursePath(creds.CourseID, ""),
	})
	if err != nil {
		logging.ExtractLogger(ctx).Warn().Err(err).Msg("failed to fetch course name")
		return ""
	}
	var course canvas.Course
	if err := json.Unmarshal(res.Body, &course); err != nil {
		logging.ExtractLogger(ctx).Warn().Err(err).Msg("failed to parse course")
		return ""
	}
	return course.Name
}

func (f *Fetcher) fetchTopicPosts(ctx context.Context, creds Credentials, topic canvas.DiscussionTopic) ([]models.Post, error) {
	topicPath := coursePath(creds.CourseID, fmt.Sprintf("discussion_topics/%d", topic.ID))

	entries, err := paginate[canvas.DiscussionEntry](ctx, f.Proxy, creds, topicPath+"/entries", f.PerPage)
	if err != nil {
		return nil, oops.New(err, "failed to list entries for topic %d", topic.ID)
	}

	var posts []models.Post
	for _, entry := range entries {
		post := newPost(entry, topic, nil)

		var replies []canvas.DiscussionEntry
		if entry.HasMoreReplies {
			replies, err = paginate[canvas.DiscussionEntry](ctx, f.Proxy, creds, fmt.Sprintf("%s/entries/%d/replies", topicPath, entry.ID), f.PerPage)
			if err != nil {
				return nil, oops.New(err, "failed to list replies to entry %d in topic %d", entry.ID, topic.ID)
			}
		} else {
			replies = entry.RecentReplies
		}

		replyPosts := make([]models.Post, 0, len(replies))
		for _, reply := range replies {
			replyPosts = append(replyPosts, newPost(reply, topic, &entry.ID))
		}

		// Recent replies are the complete set when there are no more, so
		// they can be attached directly. Paged replies are left to be linked
		// up by parent id.
		if !entry.HasMoreReplies {
			post.Replies = []models.Post{}
			for _, reply := range replyPosts {
				if *reply.ParentID == entry.ID {
					post.Replies = append(post.Replies, reply)
				}
			}
		}

		posts = append(posts, post)
		posts = append(posts, replyPosts...)
	}

	return posts, nil
}

// Replies without a parent id belong to the top-level entry they were listed
// under.
func newPost(e canvas.DiscussionEntry, topic canvas.DiscussionTopic, listedUnder *int) models.Post {
	parentID := e.ParentID
	if parentID == nil && listedUnder != nil {
		id := *listedUnder
		parentID = &id
	}

	author := e.AuthorName()
	if author == "" {
		author = models.UnknownAuthor
	}

	return models.Post{
		ID:                e.ID,
		ParentID:          parentID,
		DiscussionTopicID: topic.ID,
		TopicTitle:        topic.Title,
		AssignmentID:      topic.AssignmentID,
		UserID:            e.AuthorID(),
		Author:            author,
		AvatarURL:         e.AvatarURL(),
		CreatedAt:         e.CreatedAt,
		Message:           e.Message,
	}
}

func coursePath(courseID, rest string) string {
	p := "/courses/" + url.PathEscape(courseID)
	if rest != "" {
		p += "/" + rest
	}
	return p
}
