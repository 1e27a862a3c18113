package discussions

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/cdil-bc/canvas-discussions/src/cache"
	"github.com/cdil-bc/canvas-discussions/src/canvas"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	body string
	next string
}

type fakeProxy struct {
	pages map[string]fakePage
	fail  map[string]error
	calls []canvas.Request
}

func (p *fakeProxy) Do(ctx context.Context, r canvas.Request) (*canvas.Response, error) {
	p.calls = append(p.calls, r)
	if err, ok := p.fail[r.Endpoint]; ok {
		return nil, err
	}
	page, ok := p.pages[r.Endpoint]
	if !ok {
		return nil, &canvas.APIError{Method: http.MethodGet, URL: r.Endpoint, StatusCode: http.StatusNotFound}
	}
	return &canvas.Response{Body: []byte(page.body), Next: page.next}, nil
}

var testCreds = Credentials{
	APIURL:   "https://canvas.test/api/v1",
	APIKey:   "secret",
	CourseID: "42",
}

func courseFixture() *fakeProxy {
	return &fakeProxy{
		pages: map[string]fakePage{
			"/courses/42/discussion_topics": {
				body: `[{"id": 1, "title": "Week 1", "assignment_id": 10, "due_at": "2024-02-01T23:59:00Z"}]`,
				next: "https://canvas.test/api/v1/courses/42/discussion_topics?page=2",
			},
			"https://canvas.test/api/v1/courses/42/discussion_topics?page=2": {
				body: `[{"id": 2, "title": "Week 2", "assignment": {"due_at": "2024-02-08T23:59:00Z"}}]`,
			},
			"/courses/42/discussion_topics/1/entries": {
				body: `[{
					"id": 100, "user_id": 5, "user_name": "Ada Lovelace", "message": "<p>hi</p>", "created_at": "2024-01-01T10:00:00Z",
					"has_more_replies": false,
					"recent_replies": [
						{"id": 101, "parent_id": 100, "user_name": "Grace Hopper", "message": "<p>hello</p>", "created_at": "2024-01-01T11:00:00Z"},
						{"id": 102, "parent_id": 101, "message": "<p>nested</p>", "created_at": "2024-01-01T12:00:00Z"}
					]
				}]`,
			},
			"/courses/42/discussion_topics/2/entries": {
				body: `[{
					"id": 200, "user": {"id": 7, "display_name": "Alan Turing", "avatar_image_url": "https://canvas.test/alan.png"},
					"message": "<p>week two</p>", "created_at": "2024-01-08T10:00:00Z",
					"has_more_replies": true,
					"recent_replies": [{"id": 202, "parent_id": 200, "created_at": "2024-01-08T12:00:00Z"}]
				}]`,
			},
			"/courses/42/discussion_topics/2/entries/200/replies": {
				body: `[{"id": 201, "parent_id": 200, "user_name": "Grace Hopper", "created_at": "2024-01-08T11:00:00Z"}]`,
				next: "https://canvas.test/api/v1/courses/42/discussion_topics/2/entries/200/replies?page=2",
			},
			"https://canvas.test/api/v1/courses/42/discussion_topics/2/entries/200/replies?page=2": {
				body: `[{"id": 202, "user_name": "Katherine Johnson", "created_at": "2024-01-08T12:00:00Z"}]`,
			},
			"/courses/42": {
				body: `{"id": 42, "name": "Intro to Computing"}`,
			},
		},
	}
}

func newTestFetcher(t *testing.T, proxy Proxy) *Fetcher {
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	return &Fetcher{Store: store, Proxy: proxy}
}

func postsByID(posts []models.Post) map[int]models.Post {
	result := make(map[int]models.Post)
	for _, p := range posts {
		result[p.ID] = p
	}
	return result
}

func TestFetchDiscussions(t *testing.T) {
	ctx := context.Background()
	proxy := courseFixture()
	f := newTestFetcher(t, proxy)

	res, err := f.FetchDiscussions(ctx, testCreds)
	require.Nil(t, err)
	assert.Equal(t, SourceNetwork, res.Source)
	require.Len(t, res.Posts, 6)

	posts := postsByID(res.Posts)

	t.Run("topic metadata", func(t *testing.T) {
		assert.Equal(t, "Week 1", posts[102].TopicTitle)
		assert.Equal(t, 1, posts[102].DiscussionTopicID)
		require.NotNil(t, posts[101].AssignmentID)
		assert.Equal(t, 10, *posts[101].AssignmentID)
		assert.Nil(t, posts[201].AssignmentID)
		assert.Equal(t, "Week 2", posts[201].TopicTitle)
	})

	t.Run("authors", func(t *testing.T) {
		assert.Equal(t, "Ada Lovelace", posts[100].Author)
		require.NotNil(t, posts[100].UserID)
		assert.Equal(t, 5, *posts[100].UserID)
		assert.Equal(t, "Alan Turing", posts[200].Author)
		require.NotNil(t, posts[200].UserID)
		assert.Equal(t, 7, *posts[200].UserID)
		require.NotNil(t, posts[200].AvatarURL)
		assert.Equal(t, models.UnknownAuthor, posts[102].Author)
	})

	t.Run("complete recent replies are embedded", func(t *testing.T) {
		require.True(t, posts[100].HasEmbeddedReplies())
		require.Len(t, posts[100].Replies, 1)
		assert.Equal(t, 101, posts[100].Replies[0].ID)
	})

	t.Run("paged replies are linked by parent", func(t *testing.T) {
		assert.False(t, posts[200].HasEmbeddedReplies())
		require.NotNil(t, posts[202].ParentID)
		assert.Equal(t, 200, *posts[202].ParentID)
		assert.Equal(t, "Katherine Johnson", posts[202].Author)
	})

	t.Run("credentials are passed through", func(t *testing.T) {
		for _, call := range proxy.calls {
			assert.Equal(t, testCreds.APIURL, call.APIURL)
			assert.Equal(t, testCreds.APIKey, call.APIKey)
		}
	})

	t.Run("second fetch comes from the cache", func(t *testing.T) {
		calls := len(proxy.calls)
		res, err := f.FetchDiscussions(ctx, testCreds)
		require.Nil(t, err)
		assert.Equal(t, SourceCache, res.Source)
		assert.Len(t, res.Posts, 6)
		assert.Len(t, proxy.calls, calls)
	})

	t.Run("refresh goes back to the network", func(t *testing.T) {
		calls := len(proxy.calls)
		res, err := f.Refresh(ctx, testCreds)
		require.Nil(t, err)
		assert.Equal(t, SourceNetwork, res.Source)
		assert.Greater(t, len(proxy.calls), calls)
	})

	t.Run("downloads carry the topic listing", func(t *testing.T) {
		require.Len(t, res.Topics, 2)
		assert.Equal(t, "Week 2", res.Topics[1].Title)
		require.NotNil(t, res.Topics[1].DueAt)

		cached, err := f.FetchDiscussions(ctx, testCreds)
		require.Nil(t, err)
		assert.Nil(t, cached.Topics)
	})
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	proxy := courseFixture()
	proxy.fail = map[string]error{
		"/courses/42/discussion_topics": &canvas.APIError{Method: http.MethodGet, StatusCode: http.StatusServiceUnavailable},
	}
	f := newTestFetcher(t, proxy)

	cached := seed.Course(seed.CourseInput{Topics: 1, PostsPerTopic: 2})
	require.Nil(t, f.Store.Put(ctx, testCreds.CourseID, cached))

	res, err := f.Refresh(ctx, testCreds)
	require.NotNil(t, err)
	assert.Nil(t, res)
	assert.NotEmpty(t, proxy.calls)

	entry, ok, err := f.Store.Get(ctx, testCreds.CourseID)
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, cached, entry.Posts)
}

func TestRefreshReplacesCache(t *testing.T) {
	ctx := context.Background()
	f := newTestFetcher(t, courseFixture())

	require.Nil(t, f.Store.Put(ctx, testCreds.CourseID, seed.Course(seed.CourseInput{Topics: 1, PostsPerTopic: 2})))

	_, err := f.Refresh(ctx, testCreds)
	require.Nil(t, err)

	entry, ok, err := f.Store.Get(ctx, testCreds.CourseID)
	require.Nil(t, err)
	require.True(t, ok)
	assert.Len(t, entry.Posts, 6)
}

func TestFetchDiscussionsCacheHitSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	proxy := &fakeProxy{}
	f := newTestFetcher(t, proxy)

	cached := seed.Course(seed.CourseInput{Topics: 2, PostsPerTopic: 3})
	require.Nil(t, f.Store.Put(ctx, testCreds.CourseID, cached))

	res, err := f.FetchDiscussions(ctx, testCreds)
	require.Nil(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, cached, res.Posts)
	assert.Empty(t, proxy.calls)
}

func TestFetchDiscussionsFailureLeavesCacheAlone(t *testing.T) {
	ctx := context.Background()
	proxy := courseFixture()
	proxy.fail = map[string]error{
		"https://canvas.test/api/v1/courses/42/discussion_topics/2/entries/200/replies?page=2": &canvas.APIError{
			Method:     http.MethodGet,
			StatusCode: http.StatusInternalServerError,
			Body:       "oh no",
		},
	}
	f := newTestFetcher(t, proxy)

	res, err := f.FetchDiscussions(ctx, testCreds)
	require.NotNil(t, err)
	assert.Nil(t, res)

	var apiErr *canvas.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	_, ok, err := f.Store.Get(ctx, testCreds.CourseID)
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestFetchDiscussionsEmptyCourse(t *testing.T) {
	proxy := &fakeProxy{pages: map[string]fakePage{
		"/courses/42/discussion_topics": {body: `[]`},
	}}
	f := newTestFetcher(t, proxy)

	res, err := f.FetchDiscussions(context.Background(), testCreds)
	require.Nil(t, err)
	assert.Empty(t, res.Posts)

	res, err = f.FetchDiscussions(context.Background(), testCreds)
	require.Nil(t, err)
	assert.Equal(t, SourceCache, res.Source)
}

func TestFetchDiscussionsMissingCredentials(t *testing.T) {
	proxy := &fakeProxy{}
	f := newTestFetcher(t, proxy)

	_, err := f.FetchDiscussions(context.Background(), Credentials{APIURL: "https://canvas.test"})
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), "API key, course id")
	assert.Empty(t, proxy.calls)
}

func TestFetchDiscussionsPerPage(t *testing.T) {
	proxy := &fakeProxy{pages: map[string]fakePage{
		"/courses/42/discussion_topics?per_page=50": {body: `[]`},
	}}
	f := newTestFetcher(t, proxy)
	f.PerPage = 50

	_, err := f.FetchDiscussions(context.Background(), testCreds)
	require.Nil(t, err)
}

func TestFetchTopics(t *testing.T) {
	f := newTestFetcher(t, courseFixture())

	topics, err := f.FetchTopics(context.Background(), testCreds)
	require.Nil(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Week 1", topics[0].Title)
	require.NotNil(t, topics[0].DueAt)
	assert.Equal(t, 2024, topics[0].DueAt.Year())
	require.NotNil(t, topics[1].DueAt, "falls back to the assignment's due date")
	assert.Equal(t, 8, topics[1].DueAt.Day())
}

func TestFetchCourseName(t *testing.T) {
	f := newTestFetcher(t, courseFixture())
	assert.Equal(t, "Intro to Computing", f.FetchCourseName(context.Background(), testCreds))

	f = newTestFetcher(t, &fakeProxy{})
	assert.Equal(t, "", f.FetchCourseName(context.Background(), testCreds))
}

func TestPaginateStopsLoops(t *testing.T) {
	proxy := &fakeProxy{pages: map[string]fakePage{
		"/loop": {body: `[1]`, next: "/loop"},
	}}
	_, err := paginate[int](context.Background(), proxy, testCreds, "/loop", 0)
	assert.NotNil(t, err)
	assert.Len(t, proxy.calls, maxPages)
}
