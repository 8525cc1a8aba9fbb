package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/akshay033333/stocks-API-extractor/pkg/client"
)

// fakePage describes one page served by the fake fetcher.
type fakePage struct {
	records int
	nextURL string
	err     error
}

// fakeFetcher serves scripted pages by URL and optionally runs a hook after
// each fetch.
type fakeFetcher struct {
	pages      map[string]fakePage
	fetched    []string
	counter    int
	afterFetch func(fetchCount int)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageURL string) (*client.Page, error) {
	f.fetched = append(f.fetched, pageURL)

	p, ok := f.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("unexpected page url %q", pageURL)
	}
	if p.err != nil {
		return nil, p.err
	}

	page := &client.Page{NextURL: p.nextURL}
	for i := 0; i < p.records; i++ {
		f.counter++
		r := client.NewRecord()
		r.Set("ticker", fmt.Sprintf("SYM%05d", f.counter))
		r.Set("market", "stocks")
		page.Results = append(page.Results, r)
	}

	if f.afterFetch != nil {
		f.afterFetch(len(f.fetched))
	}
	return page, nil
}

// chain builds a fetcher serving a linear sequence of pages with the given
// record counts, starting at "page1".
func chain(counts ...int) *fakeFetcher {
	f := &fakeFetcher{pages: make(map[string]fakePage)}
	for i, count := range counts {
		next := ""
		if i < len(counts)-1 {
			next = fmt.Sprintf("page%d", i+2)
		}
		f.pages[fmt.Sprintf("page%d", i+1)] = fakePage{records: count, nextURL: next}
	}
	return f
}

func TestDriver_FetchAll_AccumulatesAllPagesInOrder(t *testing.T) {
	fetcher := chain(3, 2, 4)
	driver := NewDriver(fetcher, nil)

	result, err := driver.FetchAll(context.Background(), "page1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if result.Outcome != OutcomeDone {
		t.Errorf("Outcome = %q, want done", result.Outcome)
	}
	if result.Pages != 3 {
		t.Errorf("Pages = %d, want 3", result.Pages)
	}
	if len(result.Records) != 9 {
		t.Errorf("records = %d, want 9 (sum of page counts)", len(result.Records))
	}

	// Page visit order must be preserved in output order.
	first, _ := result.Records[0].Get("ticker")
	last, _ := result.Records[8].Get("ticker")
	if first != "SYM00001" || last != "SYM00009" {
		t.Errorf("record order broken: first = %v, last = %v", first, last)
	}
}

func TestDriver_FetchAll_LargeListing(t *testing.T) {
	// 14 pages of 1000 records, then a final page of 739 with no
	// continuation reference.
	counts := make([]int, 15)
	for i := 0; i < 14; i++ {
		counts[i] = 1000
	}
	counts[14] = 739

	driver := NewDriver(chain(counts...), nil)
	result, err := driver.FetchAll(context.Background(), "page1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if result.Pages != 15 {
		t.Errorf("Pages = %d, want 15", result.Pages)
	}
	if len(result.Records) != 14739 {
		t.Errorf("records = %d, want 14739", len(result.Records))
	}
}

func TestDriver_FetchAll_EmptyPageWithContinuationAdvances(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"page1": {records: 2, nextURL: "page2"},
		"page2": {records: 0, nextURL: "page3"},
		"page3": {records: 1},
	}}

	result, err := NewDriver(fetcher, nil).FetchAll(context.Background(), "page1")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if result.Pages != 3 {
		t.Errorf("Pages = %d, want 3", result.Pages)
	}
	if len(result.Records) != 3 {
		t.Errorf("records = %d, want 3", len(result.Records))
	}
}

func TestDriver_FetchAll_RepeatedContinuationIsLoopError(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"page1": {records: 2, nextURL: "page2"},
		"page2": {records: 1, nextURL: "page1"}, // server loops back
	}}

	result, err := NewDriver(fetcher, nil).FetchAll(context.Background(), "page1")
	if !errors.Is(err, ErrCursorLoop) {
		t.Fatalf("error = %v, want ErrCursorLoop", err)
	}
	if client.Classify(err) != client.ErrorClassParse {
		t.Errorf("error class = %q, want parse", client.Classify(err))
	}

	if result.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", result.Outcome)
	}
	if len(result.Records) != 3 {
		t.Errorf("records = %d, want the 3 gathered before the loop", len(result.Records))
	}
}

func TestDriver_FetchAll_FatalErrorKeepsPartialRecords(t *testing.T) {
	authErr := &client.APIError{StatusCode: 401, ErrorClass: client.ErrorClassAuth, Message: "401 Unauthorized"}
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"page1": {records: 5, nextURL: "page2"},
		"page2": {err: authErr},
	}}

	result, err := NewDriver(fetcher, nil).FetchAll(context.Background(), "page1")
	if !errors.Is(err, authErr) {
		t.Fatalf("error = %v, want the auth error", err)
	}

	if result.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", result.Outcome)
	}
	if result.Pages != 1 || len(result.Records) != 5 {
		t.Errorf("partial result = %d pages / %d records, want 1 / 5", result.Pages, len(result.Records))
	}
}

func TestDriver_FetchAll_AuthFailureOnFirstPage(t *testing.T) {
	authErr := &client.APIError{StatusCode: 401, ErrorClass: client.ErrorClassAuth, Message: "401 Unauthorized"}
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		"page1": {err: authErr},
	}}

	result, err := NewDriver(fetcher, nil).FetchAll(context.Background(), "page1")
	if client.Classify(err) != client.ErrorClassAuth {
		t.Fatalf("error class = %q, want auth", client.Classify(err))
	}

	if len(result.Records) != 0 {
		t.Errorf("records = %d, want 0", len(result.Records))
	}
	if len(fetcher.fetched) != 1 {
		t.Errorf("fetches = %d, want 1 (no retries at driver level)", len(fetcher.fetched))
	}
}

func TestDriver_FetchAll_CancellationBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := chain(10, 10, 10, 10, 10)
	fetcher.afterFetch = func(fetchCount int) {
		if fetchCount == 2 {
			cancel()
		}
	}

	result, err := NewDriver(fetcher, nil).FetchAll(ctx, "page1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	if result.Outcome != OutcomeCancelled {
		t.Errorf("Outcome = %q, want cancelled", result.Outcome)
	}
	if result.Pages != 2 || len(result.Records) != 20 {
		t.Errorf("partial result = %d pages / %d records, want exactly pages 1-2 (20 records)", result.Pages, len(result.Records))
	}
}

// countingObserver records progress callbacks.
type countingObserver struct {
	pages  []int
	totals []int
}

func (o *countingObserver) PageFetched(page, pageRecords, totalRecords int, nextURL string) {
	o.pages = append(o.pages, page)
	o.totals = append(o.totals, totalRecords)
}

func TestDriver_FetchAll_ReportsProgress(t *testing.T) {
	observer := &countingObserver{}
	driver := NewDriver(chain(3, 2), observer)

	if _, err := driver.FetchAll(context.Background(), "page1"); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(observer.pages) != 2 {
		t.Fatalf("observer called %d times, want 2", len(observer.pages))
	}
	if observer.pages[0] != 1 || observer.pages[1] != 2 {
		t.Errorf("page indexes = %v, want [1 2]", observer.pages)
	}
	if observer.totals[1] != 5 {
		t.Errorf("cumulative total = %d, want 5", observer.totals[1])
	}
}
