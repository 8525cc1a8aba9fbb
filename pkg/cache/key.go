package cache

import (
	"net/url"
)

const keyPrefix = "tickers:page:"

// Key derives a deterministic cache key from a page URL. The apiKey query
// parameter is removed and the remaining parameters are re-encoded in sorted
// order, so equivalent URLs map to the same entry regardless of credential
// placement or parameter ordering.
func Key(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return keyPrefix + pageURL
	}

	q := u.Query()
	q.Del("apiKey")
	u.RawQuery = q.Encode()

	return keyPrefix + u.String()
}
