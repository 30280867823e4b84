package library

import (
	"context"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/services"
)

// FetchFunc loads one page.
type FetchFunc[T any] func(ctx context.Context, q services.PageQuery) (models.Page[T], error)

// PageRequest identifies a page fetch started by [Pager.Next].
type PageRequest struct {
	Key   string
	Query services.PageQuery
	gen   uint64
}

// Pager accumulates pages of a list for the current search term.
type Pager[T any] struct {
	fetch   FetchFunc[T]
	perPage int

	mu       sync.Mutex
	term     string
	pages    []models.Page[T]
	inFlight bool
	err      error
	gen      uint64
}

// NewPager returns a pager fetching perPage items at a time.
func NewPager[T any](fetch FetchFunc[T], perPage int) *Pager[T] {
	if perPage <= 0 {
		perPage = models.DefaultPerPage
	}
	return &Pager[T]{fetch: fetch, perPage: perPage}
}

// Key identifies the accumulated sequence. It changes with the term and page size.
func (p *Pager[T]) Key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keyLocked()
}

func (p *Pager[T]) keyLocked() string {
	return p.term + "\x00" + strconv.Itoa(p.perPage)
}

// Term returns the current search term.
func (p *Pager[T]) Term() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term
}

// SetTerm switches to a new term, discarding everything loaded for the old one.
// It reports whether the term changed.
func (p *Pager[T]) SetTerm(term string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if term == p.term {
		return false
	}
	p.term = term
	p.resetLocked()
	return true
}

// Reset drops the loaded pages but keeps the term.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Pager[T]) resetLocked() {
	p.gen++
	p.pages = nil
	p.inFlight = false
	p.err = nil
}

// Items returns every loaded item in page order.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.FlatMap(p.pages, func(page models.Page[T], _ int) []T { return page.Items })
}

// Loaded reports whether the first page has arrived.
func (p *Pager[T]) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages) > 0
}

// Loading reports whether a page fetch is in flight.
func (p *Pager[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// HasMore reports whether another page can be requested.
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMoreLocked()
}

func (p *Pager[T]) hasMoreLocked() bool {
	if len(p.pages) == 0 {
		return true
	}
	return p.pages[len(p.pages)-1].HasNextPage()
}

// Total returns the total item count reported by the last page.
func (p *Pager[T]) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 {
		return 0
	}
	return p.pages[len(p.pages)-1].Total
}

// Err returns the error of the last failed fetch for the current key.
func (p *Pager[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Next reserves the next page fetch. It returns false when there is nothing more
// to load or a fetch is already running.
func (p *Pager[T]) Next() (PageRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight || !p.hasMoreLocked() {
		return PageRequest{}, false
	}
	p.inFlight = true
	p.err = nil
	return PageRequest{
		Key:   p.keyLocked(),
		Query: services.PageQuery{Page: len(p.pages) + 1, PerPage: p.perPage, Term: p.term},
		gen:   p.gen,
	}, true
}

// Load runs req against the fetch function without touching pager state.
func (p *Pager[T]) Load(ctx context.Context, req PageRequest) (models.Page[T], error) {
	return p.fetch(ctx, req.Query)
}

// Apply stores the outcome of req. Results issued before a term change or reset
// are dropped and Apply returns false.
func (p *Pager[T]) Apply(req PageRequest, page models.Page[T], err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.gen != p.gen || req.Key != p.keyLocked() || req.Query.Page != len(p.pages)+1 {
		return false
	}
	p.inFlight = false
	if err != nil {
		p.err = err
		return true
	}
	p.pages = append(p.pages, page)
	return true
}

// FetchNext loads and applies the next page. It returns the new items, or nil
// when there was nothing to load or the result was superseded.
func (p *Pager[T]) FetchNext(ctx context.Context) ([]T, error) {
	req, ok := p.Next()
	if !ok {
		return nil, nil
	}
	page, err := p.Load(ctx, req)
	if !p.Apply(req, page, err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
