// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// scriptedFeed answers with statuses in order, repeating the last one, and
// records the User-Agent of every request it sees.
func scriptedFeed(t *testing.T, statuses ...int) (*httptest.Server, *int32, func() []string) {
	t.Helper()
	var (
		calls  int32
		mu     sync.Mutex
		agents []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		if n > len(statuses) {
			n = len(statuses)
		}
		w.WriteHeader(statuses[n-1])
		w.Write([]byte("<feed/>"))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), agents...)
	}
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"first answer is used", []int{http.StatusOK}, 5, http.StatusOK, 1},
		{"rate limited twice then served", []int{429, 429, http.StatusOK}, 5, http.StatusOK, 3},
		{"retries exhausted returns last 429", []int{429}, 3, http.StatusTooManyRequests, 4},
		{"zero max uses the default of five", []int{429}, 0, http.StatusTooManyRequests, 6},
		{"server error is not retried here", []int{http.StatusServiceUnavailable}, 5, http.StatusServiceUnavailable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls, agents := scriptedFeed(t, tt.statuses...)

			req, err := http.NewRequest(http.MethodGet, ts.URL+"?search_query=cat:cs.LG", nil)
			require.NoError(t, err)
			req.Header.Set("User-Agent", "paperfeed-test")

			resp, err := DoWithRetry(context.Background(), ts.Client(), nil, req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			for _, ua := range agents() {
				assert.Equal(t, "paperfeed-test", ua, "headers survive every retry")
			}
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), nil, req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_LimiterSpacesRequests(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	limiter := NewLimiter(20) // one token every 50ms, burst 1

	start := time.Now()
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		resp, err := DoWithRetry(context.Background(), ts.Client(), limiter, req, 1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestDoWithRetry_LimiterHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	limiter := NewLimiter(0.1)
	require.True(t, limiter.Allow(), "first token is free")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), limiter, req, 1)
	assert.Error(t, err)
}

func TestNewLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}
