package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/tomnomnom/linkheader"
	"golang.org/x/time/rate"
)

const (
	UserAgentURL     = "https://github.com/cdil-bc/canvas-discussions"
	UserAgentVersion = "1.0"
)

var UserAgent = fmt.Sprintf("CanvasDiscussions (%s, %s)", UserAgentURL, UserAgentVersion)

// Everything needed to make one authenticated call to the Canvas API.
// Endpoint is relative to APIURL ("/courses/123/discussion_topics"), or an
// absolute URL on the same host, as found in pagination links.
type Request struct {
	APIURL   string
	APIKey   string
	Endpoint string
	Method   string
	Body     []byte
}

type Response struct {
	Body json.RawMessage

	// The next page of results, usable as a Request.Endpoint. Empty on the
	// last page.
	Next string
}

// Returned for any non-2xx response from Canvas.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Canvas API returned %d for %s %s: %s", e.StatusCode, e.Method, e.URL, strings.TrimSpace(e.Body))
}

func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

type Client struct {
	HTTPClient *http.Client

	// Retries for rate-limited requests. Other failures are never retried.
	MaxRetries int
	RetryMin   time.Duration
	RetryMax   time.Duration

	limiter *rate.Limiter
}

func NewClient(requestsPerSecond float64, maxRetries int) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		MaxRetries: maxRetries,
		RetryMin:   1 * time.Second,
		RetryMax:   1 * time.Minute,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	const name = "Canvas Request"

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := resolveURL(r.APIURL, r.Endpoint)
	if err != nil {
		return nil, err
	}

	res, err := c.doWithRateLimiting(ctx, name, func(ctx context.Context) (*http.Request, error) {
		var bodyReader io.Reader
		if r.Body != nil {
			bodyReader = bytes.NewReader(r.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.APIKey))
		req.Header.Add("User-Agent", UserAgent)
		req.Header.Add("Accept", "application/json")
		if r.Body != nil {
			req.Header.Add("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, oops.New(err, "failed to read Canvas response body")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		logErrorResponse(ctx, name, res, body)
		return nil, &APIError{
			Method:     method,
			URL:        redactURL(u),
			StatusCode: res.StatusCode,
			Body:       string(body),
		}
	}

	// Canvas prefixes JSON with this to defeat JSON hijacking when asked to.
	body = bytes.TrimPrefix(body, []byte("while(1);"))
	if !json.Valid(body) {
		return nil, oops.New(nil, "Canvas returned invalid JSON for %s", redactURL(u))
	}

	return &Response{
		Body: body,
		Next: nextLink(res.Header),
	}, nil
}

func resolveURL(apiURL, endpoint string) (string, error) {
	base, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", oops.New(err, "invalid Canvas API URL %q", apiURL)
	}

	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		abs, err := url.Parse(endpoint)
		if err != nil {
			return "", oops.New(err, "invalid Canvas URL %q", endpoint)
		}
		// Pagination links are absolute. Never send the token anywhere else.
		if !strings.EqualFold(abs.Host, base.Host) {
			return "", oops.New(nil, "refusing to send Canvas credentials to %s (API host is %s)", abs.Host, base.Host)
		}
		return abs.String(), nil
	}

	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return base.String() + endpoint, nil
}

func nextLink(header http.Header) string {
	for _, link := range linkheader.ParseMultiple(header.Values("Link")).FilterByRel("next") {
		if link.URL != "" {
			return link.URL
		}
	}
	return ""
}

// Drops the query string, which is only pagination noise in error messages.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	parsed.RawQuery = ""
	return parsed.String()
}

func logErrorResponse(ctx context.Context, name string, res *http.Response, body []byte) {
	const maxBody = 2000
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	logging.ExtractLogger(ctx).Error().
		Str("name", name).
		Int("status", res.StatusCode).
		Str("url", redactURL(res.Request.URL.String())).
		Str("body", string(body)).
		Msg("received error from Canvas")
}
