package discussions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cdil-bc/canvas-discussions/src/canvas"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

// Canvas never returns more than this many pages for a single listing in
// practice; hitting it means the next links are looping.
const maxPages = 1000

// Walks every page of a Canvas listing, one request at a time, and decodes
// each page's JSON array into T. Any failure abandons the whole listing.
func paginate[T any](ctx context.Context, proxy Proxy, creds Credentials, endpoint string, perPage int) ([]T, error) {
	log := logging.ExtractLogger(ctx)

	var result []T
	next := withPerPage(endpoint, perPage)
	for page := 1; next != ""; page++ {
		if page > maxPages {
			return nil, oops.New(nil, "gave up paging %s after %d pages", endpoint, maxPages)
		}

		log.Debug().Str("endpoint", endpoint).Int("page", page).Msg("fetching page")
		res, err := proxy.Do(ctx, canvas.Request{
			APIURL:   creds.APIURL,
			APIKey:   creds.APIKey,
			Endpoint: next,
		})
		if err != nil {
			return nil, oops.New(err, "failed to fetch page %d of %s", page, endpoint)
		}

		var items []T
		if err := json.Unmarshal(res.Body, &items); err != nil {
			return nil, oops.New(err, "failed to parse page %d of %s", page, endpoint)
		}
		result = append(result, items...)

		next = res.Next
	}

	return result, nil
}

func withPerPage(endpoint string, perPage int) string {
	if perPage <= 0 {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("per_page", fmt.Sprint(perPage))
	u.RawQuery = q.Encode()
	return u.String()
}
