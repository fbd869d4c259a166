package search

import (
	"encoding/json"
	"sync"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
)

// Result is one search hit. Identity is the ID; the full record travels
// opaquely in Raw for the rendering layer.
type Result struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw record alongside the extracted id.
func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	r.ID = probe.ID
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Handle is the correlation state for one query's result set. The hash
// is opaque and valid only for the query that produced it, from page 2
// onward.
type Handle struct {
	QueryHash string `json:"queryHash"`
	Page      int    `json:"page"`
	PageSize  int    `json:"limit"`
	HasMore   bool   `json:"hasMore"`
	Total     int    `json:"totalResults"`
}

type queryState struct {
	handle  Handle
	results []Result
	seen    map[string]struct{}
}

// Paginator accumulates paginated result sets keyed by query and tracks
// in-flight page requests so the same page is never requested twice
// concurrently.
type Paginator struct {
	mu       sync.Mutex
	queries  map[string]*queryState
	inflight map[string]struct{}
}

// NewPaginator creates an empty paginator.
func NewPaginator() *Paginator {
	return &Paginator{
		queries:  make(map[string]*queryState),
		inflight: make(map[string]struct{}),
	}
}

// TryAcquire atomically checks-and-inserts an in-flight key. It returns
// false when an identical request is already in flight.
func (p *Paginator) TryAcquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[key]; busy {
		return false
	}
	p.inflight[key] = struct{}{}
	return true
}

// Release removes an in-flight key. Safe for unknown keys.
func (p *Paginator) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, key)
}

// Reset discards any accumulated state for the query. Page-1 requests
// always start fresh.
func (p *Paginator) Reset(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.queries, query)
}

// ApplyPage appends a page of results for the query, filtering duplicate
// ids by identity and keeping the first occurrence. Page 1 replaces any
// previous state for the query; later pages only ever append.
func (p *Paginator) ApplyPage(query string, results []Result, handle Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	qs := p.queries[query]
	if qs == nil || handle.Page <= 1 {
		qs = &queryState{seen: make(map[string]struct{})}
		p.queries[query] = qs
	}
	prevHash := qs.handle.QueryHash
	qs.handle = handle
	if handle.QueryHash == "" {
		// Keep an earlier hash if a later page omits it.
		qs.handle.QueryHash = prevHash
	}

	for _, r := range results {
		if _, dup := qs.seen[r.ID]; dup {
			continue
		}
		qs.seen[r.ID] = struct{}{}
		qs.results = append(qs.results, r)
	}
}

// NextPageRequest returns the handle to fetch the next page for the
// query. It fails with a pagination error, issuing no request, when no
// correlation hash was stored or the result set is exhausted.
func (p *Paginator) NextPageRequest(query string) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	qs := p.queries[query]
	if qs == nil || qs.handle.QueryHash == "" {
		return Handle{}, core.NewPaginationError("search session expired: start a new search")
	}
	if !qs.handle.HasMore {
		return Handle{}, core.NewPaginationError("no more results for this search")
	}
	next := qs.handle
	next.Page++
	return next, nil
}

// Results returns a copy of the accumulated result set for the query.
func (p *Paginator) Results(query string) []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	qs := p.queries[query]
	if qs == nil {
		return nil
	}
	out := make([]Result, len(qs.results))
	copy(out, qs.results)
	return out
}

// Handle returns the stored correlation handle for the query.
func (p *Paginator) Handle(query string) (Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	qs := p.queries[query]
	if qs == nil {
		return Handle{}, false
	}
	return qs.handle, true
}
