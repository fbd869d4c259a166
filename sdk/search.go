package talentwire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
	"github.com/Mawhubtech/talentwire-go/pkg/core/search"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// DefaultPageSize is requested when the server does not dictate one.
const DefaultPageSize = 10

// ResultSet is the accumulated state of one query, delivered to result
// observers after every page.
type ResultSet struct {
	Query   string
	Filters search.Filters
	Results []search.Result
	Handle  search.Handle
}

// JobMatchSet is one job-matching run's results.
type JobMatchSet struct {
	MatchingID string
	Matches    []search.Result
}

type pageRequest struct {
	QueryHash string `json:"queryHash"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

type searchResultsEvent struct {
	Results      []search.Result `json:"results"`
	CurrentPage  int             `json:"currentPage"`
	HasMore      bool            `json:"hasMore"`
	TotalResults int             `json:"totalResults"`
	QueryHash    string          `json:"queryHash"`
	Error        string          `json:"error"`
}

// SearchService tracks candidate search and job-matching results. First
// pages arrive as server pushes on the websocket; later pages are fetched
// from the cache endpoint using the stored correlation hash.
type SearchService struct {
	bus     Bus
	http    *http.Client
	pageURL string
	logger  *slog.Logger
	metrics *metrics.Metrics

	paginator *search.Paginator

	mu           sync.Mutex
	currentQuery string
	filters      search.Filters
	seenMatching map[string]struct{}

	results  observers[ResultSet]
	matching observers[int]
	matches  observers[JobMatchSet]
	errs     observers[error]

	unsubs []func()
}

func newSearchService(bus Bus, client *http.Client, pageURL string, logger *slog.Logger, m *metrics.Metrics) *SearchService {
	s := &SearchService{
		bus:          bus,
		http:         client,
		pageURL:      pageURL,
		logger:       logger,
		metrics:      m,
		paginator:    search.NewPaginator(),
		seenMatching: make(map[string]struct{}),
	}
	s.unsubs = []func(){
		bus.Subscribe(wire.EventSearchingCandidates, s.onSearching),
		bus.Subscribe(wire.EventSearchResults, s.onSearchResults),
		bus.Subscribe(wire.EventMatchingJobs, s.onMatchingJobs),
		bus.Subscribe(wire.EventJobMatchResults, s.onJobMatchResults),
	}
	return s
}

// OnResults registers an observer for accumulated candidate results.
func (s *SearchService) OnResults(fn func(ResultSet)) func() {
	return s.results.add(fn)
}

// OnMatchingStarted registers an observer fired when the server begins a
// job-matching run, with the number of jobs being evaluated.
func (s *SearchService) OnMatchingStarted(fn func(totalJobs int)) func() {
	return s.matching.add(fn)
}

// OnJobMatches registers an observer for job-matching results.
func (s *SearchService) OnJobMatches(fn func(JobMatchSet)) func() {
	return s.matches.add(fn)
}

// OnError registers an observer for search failures.
func (s *SearchService) OnError(fn func(error)) func() {
	return s.errs.add(fn)
}

// Query returns the query the current result set belongs to.
func (s *SearchService) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuery
}

// Filters returns the server-parsed filter set for the current query.
func (s *SearchService) Filters() search.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Results returns the accumulated results for the current query.
func (s *SearchService) Results() []search.Result {
	return s.paginator.Results(s.Query())
}

// HasMore reports whether the current query has unfetched pages.
func (s *SearchService) HasMore() bool {
	h, ok := s.paginator.Handle(s.Query())
	return ok && h.HasMore
}

func (s *SearchService) onSearching(data json.RawMessage) {
	var ev struct {
		Query   string         `json:"query"`
		Filters search.Filters `json:"filters"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.Query == "" {
		s.logger.Warn("dropping malformed searching_candidates", "error", err)
		return
	}
	s.mu.Lock()
	s.currentQuery = ev.Query
	s.filters = ev.Filters
	s.mu.Unlock()
	s.paginator.Reset(ev.Query)
}

func (s *SearchService) onSearchResults(data json.RawMessage) {
	var ev searchResultsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping malformed search_results", "error", err)
		return
	}
	if ev.Error != "" {
		s.errs.notify(core.NewApplicationError(ev.Error, "search_failed"))
		return
	}
	s.applyPage(s.Query(), ev)
}

func (s *SearchService) applyPage(query string, ev searchResultsEvent) {
	if query == "" {
		s.logger.Debug("search results with no active query")
		return
	}
	handle := search.Handle{
		QueryHash: ev.QueryHash,
		Page:      ev.CurrentPage,
		PageSize:  DefaultPageSize,
		HasMore:   ev.HasMore,
		Total:     ev.TotalResults,
	}
	s.paginator.ApplyPage(query, ev.Results, handle)
	if s.metrics != nil {
		s.metrics.SearchPages.Inc()
	}
	stored, _ := s.paginator.Handle(query)
	s.results.notify(ResultSet{
		Query:   query,
		Filters: s.Filters(),
		Results: s.paginator.Results(query),
		Handle:  stored,
	})
}

func (s *SearchService) onMatchingJobs(data json.RawMessage) {
	var ev struct {
		TotalJobs int `json:"totalJobs"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	s.matching.notify(ev.TotalJobs)
}

func (s *SearchService) onJobMatchResults(data json.RawMessage) {
	var ev struct {
		Matches    []search.Result `json:"matches"`
		MatchingID string          `json:"matchingId"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping malformed job_match_results", "error", err)
		return
	}
	if ev.Error != "" {
		s.errs.notify(core.NewApplicationError(ev.Error, "job_matching_failed"))
		return
	}

	// Duplicate deliveries of the same matching run are ignored.
	s.mu.Lock()
	if _, seen := s.seenMatching[ev.MatchingID]; seen && ev.MatchingID != "" {
		s.mu.Unlock()
		return
	}
	if ev.MatchingID != "" {
		s.seenMatching[ev.MatchingID] = struct{}{}
	}
	s.mu.Unlock()

	s.matches.notify(JobMatchSet{MatchingID: ev.MatchingID, Matches: ev.Matches})
}

// NextPage fetches the next result page for the current query from the
// cache endpoint. Without a stored correlation hash it fails immediately
// with a pagination error and performs no network call.
func (s *SearchService) NextPage(ctx context.Context) error {
	query := s.Query()
	if query == "" {
		return core.NewPaginationError("no search in progress")
	}
	handle, err := s.paginator.NextPageRequest(query)
	if err != nil {
		if s.metrics != nil && core.IsType(err, core.ErrPagination) {
			s.metrics.PaginationMisses.Inc()
		}
		return err
	}
	if s.pageURL == "" {
		return core.NewInvalidRequestError("no search endpoint configured")
	}

	key := fmt.Sprintf("%s:%d", handle.QueryHash, handle.Page)
	if !s.paginator.TryAcquire(key) {
		return nil
	}
	defer s.paginator.Release(key)

	limit := handle.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	body, err := json.Marshal(pageRequest{QueryHash: handle.QueryHash, Page: handle.Page, Limit: limit})
	if err != nil {
		return core.NewInvalidRequestError("encode page request: " + err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pageURL, bytes.NewReader(body))
	if err != nil {
		return core.NewInvalidRequestError("build page request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return core.NewConnectionError("fetch page: " + err.Error())
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return core.NewConnectionError("read page response: " + err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return core.NewApplicationError(fmt.Sprintf("page request failed with status %d", resp.StatusCode), "page_fetch_failed")
	}

	var ev searchResultsEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return core.NewProtocolError("malformed page response", err)
	}
	if ev.Error != "" {
		return core.NewApplicationError(ev.Error, "search_failed")
	}
	if ev.CurrentPage == 0 {
		ev.CurrentPage = handle.Page
	}
	s.applyPage(query, ev)
	return nil
}

func (s *SearchService) shutdown() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}
