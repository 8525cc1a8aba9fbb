package paginate

import (
	"context"
	"errors"

	"github.com/akshay033333/stocks-API-extractor/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickers_pages_fetched_total",
		Help: "Total pages fetched across all sessions",
	})

	recordsAccumulatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickers_records_accumulated_total",
		Help: "Total records accumulated across all sessions",
	})
)

// ErrCursorLoop indicates the server returned a continuation reference that
// was already visited in this session. Repeating references would loop
// forever, so this is treated as a protocol violation.
var ErrCursorLoop = errors.New("continuation reference already visited")

// Outcome is the terminal state of a fetch session.
type Outcome string

const (
	// OutcomeDone means every page was fetched and the record set is complete.
	OutcomeDone Outcome = "done"

	// OutcomeFailed means a fatal error ended the session early.
	OutcomeFailed Outcome = "failed"

	// OutcomeCancelled means the caller's context ended the session early.
	OutcomeCancelled Outcome = "cancelled"
)

// PageFetcher fetches a single page given its URL or continuation reference.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*client.Page, error)
}

// Observer receives progress events as pages are accumulated. nextURL is the
// upcoming continuation reference, empty on the final page; it is reported
// for diagnostics only.
type Observer interface {
	PageFetched(page int, pageRecords int, totalRecords int, nextURL string)
}

// session is the in-memory state of one run. It is owned exclusively by
// FetchAll and discarded when the session ends.
type session struct {
	nextURL string
	records []client.Record
	pages   int
	visited map[string]struct{}
}

// Result carries the accumulated records of a session. On OutcomeFailed and
// OutcomeCancelled it holds whatever was gathered before the session ended,
// leaving the caller to decide whether a partial result is acceptable.
type Result struct {
	Records []client.Record
	Pages   int
	Outcome Outcome
}

// Driver orchestrates repeated page fetches until no continuation reference
// remains.
type Driver struct {
	fetcher  PageFetcher
	observer Observer
	logger   zerolog.Logger
}

// NewDriver creates a driver over the given fetcher. A nil observer logs
// progress through zerolog.
func NewDriver(fetcher PageFetcher, observer Observer) *Driver {
	logger := log.With().Str("component", "paginate").Logger()
	if observer == nil {
		observer = logObserver{logger: logger}
	}
	return &Driver{
		fetcher:  fetcher,
		observer: observer,
		logger:   logger,
	}
}

// FetchAll traverses the listing starting at startURL and returns the
// accumulated records. The traversal terminates when a page carries no
// continuation reference. The returned Result is never nil; on error it
// carries the partial record set and a Failed or Cancelled outcome.
func (d *Driver) FetchAll(ctx context.Context, startURL string) (*Result, error) {
	s := &session{
		nextURL: startURL,
		visited: make(map[string]struct{}),
	}

	for s.nextURL != "" {
		// Abort before the next network request once cancellation is raised.
		if err := ctx.Err(); err != nil {
			d.logger.Warn().
				Int("pages", s.pages).
				Int("records", len(s.records)).
				Msg("Session cancelled")
			return s.result(OutcomeCancelled), err
		}

		if _, seen := s.visited[s.nextURL]; seen {
			err := &client.APIError{
				ErrorClass: client.ErrorClassParse,
				Message:    "server repeated a continuation reference",
				Err:        ErrCursorLoop,
			}
			d.logger.Error().
				Int("pages", s.pages).
				Msg("Continuation reference loop detected")
			return s.result(OutcomeFailed), err
		}
		s.visited[s.nextURL] = struct{}{}

		page, err := d.fetcher.FetchPage(ctx, s.nextURL)
		if err != nil {
			if ctx.Err() != nil {
				d.logger.Warn().
					Int("pages", s.pages).
					Int("records", len(s.records)).
					Msg("Session cancelled during fetch")
				return s.result(OutcomeCancelled), ctx.Err()
			}
			d.logger.Error().
				Err(err).
				Int("page", s.pages+1).
				Int("records", len(s.records)).
				Msg("Page fetch failed")
			return s.result(OutcomeFailed), err
		}

		s.pages++
		s.records = append(s.records, page.Results...)
		s.nextURL = page.NextURL

		pagesFetchedTotal.Inc()
		recordsAccumulatedTotal.Add(float64(len(page.Results)))
		d.observer.PageFetched(s.pages, len(page.Results), len(s.records), page.NextURL)
	}

	d.logger.Info().
		Int("pages", s.pages).
		Int("records", len(s.records)).
		Msg("Fetched all pages")
	return s.result(OutcomeDone), nil
}

func (s *session) result(outcome Outcome) *Result {
	return &Result{
		Records: s.records,
		Pages:   s.pages,
		Outcome: outcome,
	}
}

// logObserver is the default progress observer.
type logObserver struct {
	logger zerolog.Logger
}

func (o logObserver) PageFetched(page, pageRecords, totalRecords int, nextURL string) {
	event := o.logger.Info().
		Int("page", page).
		Int("page_records", pageRecords).
		Int("total_records", totalRecords)
	if nextURL != "" {
		event = event.Str("next_url", nextURL)
	}
	event.Msg("Page fetched")
}
