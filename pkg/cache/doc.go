// Package cache provides an optional Redis-backed cache for page responses.
//
// Reference-data listings change slowly, so a rerun within the TTL can skip
// the network entirely for pages it has already seen. The cache is purely an
// optimization: every pagination guarantee holds with caching disabled, and
// the client treats cache errors as misses.
//
// Keys are derived from the page URL with credential query parameters
// stripped, so the API key never reaches Redis.
package cache
