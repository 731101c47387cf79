// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry turns unreliable feed round trips into a result the
// pagination engine can always consume. Controller.Fetch retries failed
// and empty pages with exponential backoff and randomized reprobing, and
// falls back to a placeholder batch when the feed cannot be reached.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperfeed/internal/feed"
	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// Batch is the settled outcome of one logical page request.
type Batch struct {
	Records []types.Paper

	// Origin is OriginPlaceholder when Records were generated locally.
	Origin types.Origin

	// Attempts is the number of gateway round trips made.
	Attempts int

	// Offset is the last offset probed.
	Offset int

	// Reason is the last failure reason seen, empty when none failed.
	Reason feed.Reason
}

// Placeholder reports whether the batch holds generated records.
func (b Batch) Placeholder() bool {
	return b.Origin == types.OriginPlaceholder
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Controller applies the retry policy around a feed.Gateway. It is safe
// for concurrent use when its gateway is.
type Controller struct {
	gateway feed.Gateway
	cfg     types.RetryConfig
	sort    feed.Sort
	timeout time.Duration

	sleep   Sleeper
	intn    func(n int) int
	log     zerolog.Logger
	metrics *observability.Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleeper replaces the real timer, so tests can record waits.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithRand replaces the jitter source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(c *Controller) { c.intn = intn }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = observability.WithComponent(log, "retry") }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithSort sets the sort directive sent with every request.
func WithSort(s feed.Sort) Option {
	return func(c *Controller) { c.sort = s }
}

// WithTimeout sets the per-round-trip deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// New returns a Controller. Zero fields in cfg take their defaults:
// 5 attempts, 1s base delay, 10 placeholder records.
func New(gw feed.Gateway, cfg types.RetryConfig, opts ...Option) *Controller {
	def := types.DefaultConfig().Retry
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.PlaceholderSize <= 0 {
		cfg.PlaceholderSize = def.PlaceholderSize
	}
	c := &Controller{
		gateway: gw,
		cfg:     cfg,
		sort:    feed.DefaultSort(),
		sleep:   sleepContext,
		intn:    rand.IntN,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch requests size records at offset. It never fails: the result is
// either the first non-empty page found, an empty upstream batch when the
// feed kept answering with nothing, or a placeholder batch when the feed
// could not be reached.
//
// After an empty or failed page the next probe skips ahead by size plus
// jitter, since the feed's ordering can hold sparse gaps. A failed attempt n
// waits BaseDelay*2^(n-1) before the next probe; the final attempt does
// not wait. A Timeout or an invalid request ends the loop at once.
func (c *Controller) Fetch(ctx context.Context, query string, offset, size int) Batch {
	probe := offset
	answered := false
	var reason feed.Reason

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		log := c.log.With().
			Int("attempt", attempt).
			Int("offset", probe).
			Int("size", size).
			Logger()

		c.metrics.RecordAttempt()
		page, err := c.gateway.Fetch(ctx, feed.Request{
			Query:   query,
			Offset:  probe,
			Size:    size,
			Sort:    c.sort,
			Timeout: c.timeout,
		})

		if err != nil {
			reason = feed.ReasonOf(err)
			c.metrics.RecordFailure(string(reason))
			log.Warn().Err(err).Str("reason", string(reason)).Msg("feed fetch failed")

			if reason == feed.ReasonInvalidRequest {
				log.Error().Err(err).Str("query", query).Msg("request rejected before sending, not retrying")
				return c.placeholder(offset, probe, attempt, reason)
			}
			if reason == feed.ReasonTimeout || ctx.Err() != nil {
				return c.placeholder(offset, probe, attempt, reason)
			}
			if attempt == c.cfg.MaxAttempts {
				break
			}
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return c.placeholder(offset, probe, attempt, feed.ReasonOf(err))
			}
			probe += size + c.jitter(size)
			continue
		}

		answered = true
		if len(page.Records) > 0 {
			log.Debug().Int("records", len(page.Records)).Msg("page fetched")
			return Batch{
				Records:  page.Records,
				Origin:   types.OriginUpstream,
				Attempts: attempt,
				Offset:   probe,
				Reason:   reason,
			}
		}

		c.metrics.RecordEmptyPage()
		log.Debug().Bool("fallback", page.UsedFallback).Msg("empty page, reprobing")
		if attempt == c.cfg.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.BaseDelay); err != nil {
			return c.placeholder(offset, probe, attempt, feed.ReasonOf(err))
		}
		if page.UsedFallback {
			probe += 1 + c.jitter(100)
		} else {
			probe += size + c.jitter(size)
		}
	}

	if answered {
		c.log.Info().Int("offset", offset).Int("last_offset", probe).Msg("feed returned no records")
		return Batch{
			Records:  []types.Paper{},
			Origin:   types.OriginUpstream,
			Attempts: c.cfg.MaxAttempts,
			Offset:   probe,
			Reason:   reason,
		}
	}
	return c.placeholder(offset, probe, c.cfg.MaxAttempts, reason)
}

// backoff returns the wait after failed attempt n (1-based).
func (c *Controller) backoff(n int) time.Duration {
	return c.cfg.BaseDelay << (n - 1)
}

func (c *Controller) jitter(n int) int {
	if n <= 0 {
		return 0
	}
	return c.intn(n)
}

func (c *Controller) placeholder(offset, probe, attempts int, reason feed.Reason) Batch {
	c.metrics.RecordPlaceholderBatch()
	c.log.Warn().
		Int("offset", offset).
		Int("attempts", attempts).
		Str("reason", string(reason)).
		Msg("feed unreachable, serving placeholders")
	return Batch{
		Records:  Placeholders(offset, c.cfg.PlaceholderSize),
		Origin:   types.OriginPlaceholder,
		Attempts: attempts,
		Offset:   probe,
		Reason:   reason,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
