// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfeed/internal/feed"
	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// scriptedGateway replays responses in order, repeating the last one.
type scriptedGateway struct {
	mu       sync.Mutex
	steps    []step
	requests []feed.Request
}

type step struct {
	page feed.Page
	err  error
}

func (g *scriptedGateway) Fetch(_ context.Context, req feed.Request) (feed.Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.requests)
	g.requests = append(g.requests, req)
	if i >= len(g.steps) {
		i = len(g.steps) - 1
	}
	return g.steps[i].page, g.steps[i].err
}

func records(ids ...string) []types.Paper {
	out := make([]types.Paper, len(ids))
	for i, id := range ids {
		out[i] = types.Paper{ID: id, Origin: types.OriginUpstream}
	}
	return out
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func fixedRand(v int) func(int) int {
	return func(n int) int {
		if v >= n {
			return n - 1
		}
		return v
	}
}

func newController(gw feed.Gateway, s *sleepRecorder, opts ...Option) *Controller {
	opts = append([]Option{WithSleeper(s.sleep), WithRand(fixedRand(7))}, opts...)
	return New(gw, types.RetryConfig{}, opts...)
}

func TestFetchFirstPageSucceeds(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{page: feed.Page{Records: records("a", "b")}}}}
	s := &sleepRecorder{}
	c := newController(gw, s, WithTimeout(15*time.Second))

	b := c.Fetch(context.Background(), "cat:cs.LG", 100, 50)

	assert.Equal(t, types.OriginUpstream, b.Origin)
	assert.Equal(t, 1, b.Attempts)
	assert.Equal(t, 100, b.Offset)
	assert.Len(t, b.Records, 2)
	assert.Empty(t, s.waits)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, "cat:cs.LG", req.Query)
	assert.Equal(t, 100, req.Offset)
	assert.Equal(t, 50, req.Size)
	assert.Equal(t, feed.DefaultSort(), req.Sort)
	assert.Equal(t, 15*time.Second, req.Timeout)
}

func TestFetchAlwaysFailingMakesFiveAttempts(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{err: &feed.FetchError{Reason: feed.ReasonUpstream, Status: 503}}}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	b := c.Fetch(context.Background(), "cat:cs.*", 0, 50)

	assert.Len(t, gw.requests, 5)
	assert.Equal(t, 5, b.Attempts)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, s.waits)
	for i := 1; i < len(s.waits); i++ {
		assert.Greater(t, s.waits[i], s.waits[i-1], "waits strictly increase")
	}

	assert.True(t, b.Placeholder())
	assert.Equal(t, feed.ReasonUpstream, b.Reason)
	require.Len(t, b.Records, 10)
	for _, p := range b.Records {
		assert.True(t, p.IsPlaceholder())
	}
}

func TestFetchFailureAdvancesProbe(t *testing.T) {
	gw := &scriptedGateway{steps: []step{
		{err: &feed.FetchError{Reason: feed.ReasonParse}},
		{err: &feed.FetchError{Reason: feed.ReasonNetwork}},
		{page: feed.Page{Records: records("x")}},
	}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	b := c.Fetch(context.Background(), "q", 0, 50)

	require.Len(t, gw.requests, 3)
	assert.Equal(t, 0, gw.requests[0].Offset)
	assert.Equal(t, 57, gw.requests[1].Offset)
	assert.Equal(t, 114, gw.requests[2].Offset)
	assert.Equal(t, types.OriginUpstream, b.Origin)
	assert.Equal(t, 3, b.Attempts)
	assert.Equal(t, 114, b.Offset)
	assert.Equal(t, feed.ReasonNetwork, b.Reason)
}

func TestFetchTimeoutReturnsPlaceholderImmediately(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{err: &feed.FetchError{Reason: feed.ReasonTimeout, Err: context.DeadlineExceeded}}}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	b := c.Fetch(context.Background(), "q", 40, 50)

	assert.Len(t, gw.requests, 1)
	assert.Empty(t, s.waits)
	assert.True(t, b.Placeholder())
	assert.Equal(t, feed.ReasonTimeout, b.Reason)
	assert.Equal(t, Placeholders(40, 10), b.Records)
}

func TestFetchInvalidSortStopsWithoutRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	gw := feed.NewArxivGateway(types.FeedConfig{Endpoint: ts.URL})
	s := &sleepRecorder{}
	c := newController(gw, s, WithSort(feed.Sort{Field: "date", Order: feed.OrderDescending}))

	b := c.Fetch(context.Background(), "cat:cs.LG", 0, 50)

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, b.Attempts)
	assert.Empty(t, s.waits)
	assert.Equal(t, feed.ReasonInvalidRequest, b.Reason)
	assert.True(t, b.Placeholder())
}

func TestFetchEmptyPagesExhaustToEmptyBatch(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{page: feed.Page{Records: []types.Paper{}}}}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	b := c.Fetch(context.Background(), "q", 0, 50)

	assert.Len(t, gw.requests, 5)
	assert.Equal(t, types.OriginUpstream, b.Origin)
	assert.Empty(t, b.Records)
	assert.NotNil(t, b.Records)

	offsets := make([]int, len(gw.requests))
	for i, r := range gw.requests {
		offsets[i] = r.Offset
	}
	assert.Equal(t, []int{0, 57, 114, 171, 228}, offsets)
	assert.Equal(t, 228, b.Offset)
	assert.Len(t, s.waits, 4)
}

func TestFetchFallbackEmptyPageJumpsRandomly(t *testing.T) {
	gw := &scriptedGateway{steps: []step{
		{page: feed.Page{UsedFallback: true}},
		{page: feed.Page{Records: records("y")}},
	}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	c.Fetch(context.Background(), "q", 10, 50)

	require.Len(t, gw.requests, 2)
	assert.Equal(t, 18, gw.requests[1].Offset, "1 + rand(100) with rand fixed at 7")
}

func TestFetchMixedFailureAndEmptyIsNotPlaceholder(t *testing.T) {
	gw := &scriptedGateway{steps: []step{
		{page: feed.Page{}},
		{err: &feed.FetchError{Reason: feed.ReasonUpstream}},
	}}
	s := &sleepRecorder{}
	c := newController(gw, s)

	b := c.Fetch(context.Background(), "q", 0, 50)

	assert.Equal(t, types.OriginUpstream, b.Origin, "the feed answered at least once")
	assert.Empty(t, b.Records)
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{err: errors.New("connection refused")}}}
	c := New(gw, types.RetryConfig{},
		WithSleeper(func(context.Context, time.Duration) error { return context.Canceled }),
	)

	b := c.Fetch(context.Background(), "q", 0, 50)

	assert.Len(t, gw.requests, 1)
	assert.True(t, b.Placeholder())
}

func TestFetchCustomPolicy(t *testing.T) {
	gw := &scriptedGateway{steps: []step{{err: fmt.Errorf("boom")}}}
	s := &sleepRecorder{}
	c := New(gw, types.RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, PlaceholderSize: 4},
		WithSleeper(s.sleep), WithRand(fixedRand(0)))

	b := c.Fetch(context.Background(), "q", 0, 20)

	assert.Len(t, gw.requests, 3)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, s.waits)
	assert.Len(t, b.Records, 4)
	assert.Equal(t, feed.ReasonNetwork, b.Reason)
}

func TestFetchRecordsMetrics(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	gw := &scriptedGateway{steps: []step{
		{err: &feed.FetchError{Reason: feed.ReasonParse}},
		{page: feed.Page{}},
		{page: feed.Page{Records: records("z")}},
	}}
	c := newController(gw, &sleepRecorder{}, WithMetrics(m))

	c.Fetch(context.Background(), "q", 0, 50)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.FetchAttempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FetchFailures.WithLabelValues("ParseError")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmptyPages))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PlaceholderBatches))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestPlaceholdersDeterministic(t *testing.T) {
	a := Placeholders(100, 10)
	b := Placeholders(100, 10)
	assert.Equal(t, a, b)

	require.Len(t, a, 10)
	assert.Equal(t, "placeholder:100", a[0].ID)
	assert.Equal(t, "placeholder:109", a[9].ID)
	assert.Equal(t, "Sample Paper 100: Deep Learning Research", a[0].Title)
	assert.Equal(t, []string{"Author 201", "Author 202"}, a[0].Authors)
	assert.Equal(t, []string{"cs.CV", "cs.LG"}, a[0].Categories)
	assert.Nil(t, a[0].Published)

	other := Placeholders(110, 10)
	assert.NotEqual(t, a[0].ID, other[0].ID)
}
