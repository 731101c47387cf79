// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pager accumulates feed results for one filter scope at a time.
// It owns the fetch cursor, removes duplicates across pages, decides when
// the feed has truly run out, and exposes the LoadMore / HasMore / Loading
// contract a display layer drives.
package pager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/internal/query"
	"github.com/pdiddy/paperfeed/internal/retry"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// Fetcher settles one page request. *retry.Controller implements it.
type Fetcher interface {
	Fetch(ctx context.Context, query string, offset, size int) retry.Batch
}

// Snapshot is a copy of the engine state. Papers, Loading and HasMore are
// the display contract; the remaining fields are diagnostics.
type Snapshot struct {
	Papers  []types.Paper
	Loading bool
	HasMore bool

	Cursor       int
	Scope        query.Scope
	Placeholders int
	Reopens      int
}

// Engine is the pagination state machine. All methods are safe for
// concurrent use; the fetch itself runs without holding the lock.
type Engine struct {
	fetcher Fetcher
	cfg     types.PaginationConfig
	now     func() time.Time
	log     zerolog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	started    bool
	scope      query.Scope
	generation uint64

	papers       []types.Paper
	seen         map[string]struct{}
	upstream     int
	placeholders int

	cursor        int
	lastRequested int
	highestProbed int
	lastStart     time.Time

	loading     bool
	hasMore     bool
	emptyStreak int
	reopens     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for the load spacing check.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = observability.WithComponent(log, "pager") }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New returns an Engine with no scope. Zero BatchSize and EmptyPageLimit
// take their defaults (50 and 3); other fields are used as given.
func New(f Fetcher, cfg types.PaginationConfig, opts ...Option) *Engine {
	def := types.DefaultConfig().Pagination
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.EmptyPageLimit <= 0 {
		cfg.EmptyPageLimit = def.EmptyPageLimit
	}
	e := &Engine{
		fetcher:       f,
		cfg:           cfg,
		now:           time.Now,
		log:           zerolog.Nop(),
		seen:          make(map[string]struct{}),
		lastRequested: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetScope switches to scope. When its key differs from the current one
// the result set is cleared, the cursor returns to zero, and the first
// page is fetched before SetScope returns. A fetch still in flight for
// the previous scope is discarded when it settles. Setting the current
// scope again is a no-op and returns false.
func (e *Engine) SetScope(ctx context.Context, scope query.Scope) bool {
	e.mu.Lock()
	if e.started && e.scope.Key() == scope.Key() {
		e.mu.Unlock()
		return false
	}
	e.started = true
	e.scope = scope
	e.generation++
	e.papers = nil
	e.seen = make(map[string]struct{})
	e.upstream = 0
	e.placeholders = 0
	e.cursor = 0
	e.lastRequested = -1
	e.highestProbed = 0
	e.loading = false
	e.hasMore = true
	e.emptyStreak = 0
	e.reopens = 0

	e.log.Info().Str("scope", scope.Key()).Uint64("generation", e.generation).Msg("scope changed")
	gen, offset := e.begin()
	e.mu.Unlock()

	e.run(ctx, gen, scope.Expression, offset)
	return true
}

// LoadMore fetches the next page. The call is accepted only when no fetch
// is in flight, more results may exist, MinInterval has passed since the
// last fetch started, and the current cursor has not been requested yet.
// Rejected calls return false without side effects. Accepted calls block
// until the page settles and return true.
func (e *Engine) LoadMore(ctx context.Context) bool {
	e.mu.Lock()
	if !e.started || e.loading || !e.hasMore {
		e.mu.Unlock()
		return false
	}
	if !e.lastStart.IsZero() && e.now().Sub(e.lastStart) < e.cfg.MinInterval {
		e.mu.Unlock()
		return false
	}
	if e.cursor == e.lastRequested {
		e.mu.Unlock()
		return false
	}
	expr := e.scope.Expression
	gen, offset := e.begin()
	e.mu.Unlock()

	e.run(ctx, gen, expr, offset)
	return true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	papers := make([]types.Paper, len(e.papers))
	copy(papers, e.papers)
	return Snapshot{
		Papers:       papers,
		Loading:      e.loading,
		HasMore:      e.hasMore,
		Cursor:       e.cursor,
		Scope:        e.scope,
		Placeholders: e.placeholders,
		Reopens:      e.reopens,
	}
}

// begin marks a fetch at the cursor as started. Caller holds mu.
func (e *Engine) begin() (uint64, int) {
	e.loading = true
	e.lastRequested = e.cursor
	e.lastStart = e.now()
	return e.generation, e.cursor
}

func (e *Engine) run(ctx context.Context, gen uint64, expr string, offset int) {
	batch := e.fetcher.Fetch(ctx, expr, offset, e.cfg.BatchSize)
	e.settle(gen, offset, batch)
}

// settle folds a batch into the result set unless the scope changed
// while it was in flight.
func (e *Engine) settle(gen uint64, offset int, batch retry.Batch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := observability.WithScopeContext(e.log, e.scope.Key(), e.generation)
	if gen != e.generation {
		e.metrics.RecordStale()
		log.Debug().Uint64("stale_generation", gen).Int("offset", offset).Msg("discarding stale page")
		return
	}

	e.loading = false
	e.cursor = offset + e.cfg.BatchSize
	if batch.Offset > e.highestProbed {
		e.highestProbed = batch.Offset
	}

	appended, duplicates, shown := 0, 0, 0
	for _, p := range batch.Records {
		if _, dup := e.seen[p.ID]; dup {
			duplicates++
			continue
		}
		if p.IsPlaceholder() || batch.Placeholder() {
			if !e.cfg.ShowPlaceholders {
				continue
			}
			p.Origin = types.OriginPlaceholder
			e.seen[p.ID] = struct{}{}
			e.papers = append(e.papers, p)
			e.placeholders++
			shown++
			continue
		}
		e.seen[p.ID] = struct{}{}
		e.papers = append(e.papers, p)
		e.upstream++
		appended++
	}

	if appended == 0 {
		e.emptyStreak++
	} else {
		e.emptyStreak = 0
	}
	if e.emptyStreak >= e.cfg.EmptyPageLimit {
		e.hasMore = false
	}
	if !e.hasMore && e.upstream < e.cfg.LowWaterMark && e.reopens < e.cfg.MaxReopens {
		e.reopen(log)
	}

	e.metrics.RecordSettle(string(batch.Origin), appended, duplicates)
	log.Info().
		Int("offset", offset).
		Int("attempts", batch.Attempts).
		Str("origin", string(batch.Origin)).
		Int("appended", appended).
		Int("duplicates", duplicates).
		Int("placeholders", shown).
		Int("total", len(e.papers)).
		Int("empty_streak", e.emptyStreak).
		Bool("has_more", e.hasMore).
		Msg("page settled")
}

// reopen resumes pagination beyond every offset probed so far, for feeds
// whose sparse regions look like an end of results. Caller holds mu.
func (e *Engine) reopen(log zerolog.Logger) {
	from := e.cursor
	if e.highestProbed > from {
		from = e.highestProbed
	}
	e.cursor = from + e.cfg.ReopenJump
	e.hasMore = true
	e.emptyStreak = 0
	e.reopens++
	e.metrics.RecordReopen()
	log.Info().
		Int("results", e.upstream).
		Int("cursor", e.cursor).
		Int("reopens", e.reopens).
		Msg("too few results, reopening pagination")
}
