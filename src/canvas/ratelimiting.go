package canvas

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/cdil-bc/canvas-discussions/src/utils"
	"github.com/jpillora/backoff"
)

/*
Canvas throttles with a leaky bucket per access token. When the bucket runs
dry it answers 403 with "Rate Limit Exceeded" in the body (some deployments
sit behind proxies that answer 429 instead). We pace requests on our side
with a token bucket so this rarely happens, and when it does we wait and
retry the same request a bounded number of times.
*/
func (c *Client) doWithRateLimiting(ctx context.Context, name string, getReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	log := logging.ExtractLogger(ctx)

	boff := backoff.Backoff{
		Min:    c.RetryMin,
		Max:    c.RetryMax,
		Factor: 2,
		Jitter: true,
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, oops.New(err, "request interrupted during rate limiting")
		}

		req, err := getReq(ctx)
		if err != nil {
			return nil, oops.New(err, "failed to create %s", name)
		}

		res, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, oops.New(err, "failed to send %s", name)
		}

		if remaining := res.Header.Get("X-Rate-Limit-Remaining"); remaining != "" {
			log.Trace().Str("remaining", remaining).Msg("Canvas rate limit bucket")
		}

		if !isRateLimited(res) {
			return res, nil
		}

		if int(boff.Attempt()) >= c.MaxRetries {
			log.Warn().Int("retries", c.MaxRetries).Msg("still rate limited by Canvas; giving up")
			return res, nil
		}

		wait := boff.Duration()
		if retryAfter, ok := parseRetryAfter(res.Header); ok {
			wait = retryAfter
		}
		drainAndClose(res)

		log.Warn().Dur("retrying after", wait).Msg("got rate limited by Canvas")
		if err := utils.SleepContext(ctx, wait); err != nil {
			return nil, oops.New(err, "request interrupted while waiting out the rate limit")
		}
	}
}

// Peeks at the body of a 403 to tell throttling apart from real permission
// errors. The body is put back so callers can still read it.
func isRateLimited(res *http.Response) bool {
	switch res.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		body := peekBody(res, 512)
		return strings.Contains(strings.ToLower(body), "rate limit exceeded")
	}
	return false
}

func parseRetryAfter(header http.Header) (time.Duration, bool) {
	v := header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
