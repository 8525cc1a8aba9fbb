// Package testutil provides a configurable mock reference-data server for
// testing the fetch pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock listing server.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	PathCounts   map[string]int
	LastQuery    map[string][]string
}

// NewMockAPI creates a new mock server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.StatusCode == 0 {
			resp.StatusCode = http.StatusOK
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to one path.
func (m *MockAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetTickerPages wires the listing endpoint plus numbered continuation
// endpoints, serving counts[i] generated records on page i. Every page but
// the last carries a next_url pointing at the following page. Ticker symbols
// are unique across the whole sequence.
func (m *MockAPI) SetTickerPages(counts []int) {
	offset := 0
	for i, count := range counts {
		path := "/v3/reference/tickers"
		if i > 0 {
			path = fmt.Sprintf("/v3/reference/tickers/page/%d", i+1)
		}

		nextURL := ""
		if i < len(counts)-1 {
			nextURL = fmt.Sprintf("%s/v3/reference/tickers/page/%d", m.URL(), i+2)
		}

		m.SetResponse(path, MockResponse{
			StatusCode: http.StatusOK,
			Body:       TickerPageBody(offset, count, nextURL),
			Headers:    map[string]string{"Content-Type": "application/json"},
		})
		offset += count
	}
}

// TickerPageBody builds a listing envelope with count generated records
// starting at the given symbol offset.
func TickerPageBody(offset, count int, nextURL string) string {
	results := make([]map[string]any, 0, count)
	for n := 0; n < count; n++ {
		results = append(results, map[string]any{
			"ticker":           fmt.Sprintf("SYM%05d", offset+n),
			"name":             fmt.Sprintf("Symbol %d Inc.", offset+n),
			"market":           "stocks",
			"locale":           "us",
			"primary_exchange": "XNAS",
			"type":             "CS",
			"active":           true,
			"currency_name":    "usd",
		})
	}

	env := map[string]any{
		"results":    results,
		"status":     "OK",
		"request_id": fmt.Sprintf("req-%d", offset),
		"count":      count,
	}
	if nextURL != "" {
		env["next_url"] = nextURL
	}

	body, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return string(body)
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": "ERROR", "error": "You've exceeded the maximum requests per minute."}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewAuthErrorResponse creates a 401 Unauthorized response.
func NewAuthErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"status": "ERROR", "error": "Unknown API Key"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": "ERROR", "error": "internal error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// FailThenSucceed returns a handler that serves fail for the first n
// requests to the path, then serves ok.
func FailThenSucceed(n int, fail, ok MockResponse) http.HandlerFunc {
	var mu sync.Mutex
	served := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		resp := ok
		if served <= n {
			resp = fail
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}
