// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/paperfeed/internal/feed"
	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/internal/pager"
	"github.com/pdiddy/paperfeed/internal/prefs"
	"github.com/pdiddy/paperfeed/internal/retry"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// newGateway picks the proxy gateway when a proxy URL is configured and
// talks to the feed directly otherwise.
func newGateway(cfg types.FeedConfig) feed.Gateway {
	if cfg.ProxyURL != "" {
		logger.Debug().Str("proxy", cfg.ProxyURL).Msg("using proxy gateway")
		return feed.NewProxyGateway(cfg.ProxyURL, nil)
	}
	gw := feed.NewArxivGateway(cfg)
	gw.UserAgent = loadedSecrets.UserAgent(cfg.UserAgent)
	return gw
}

func newController(cfg types.Config, gw feed.Gateway, m *observability.Metrics) *retry.Controller {
	return retry.New(gw, cfg.Retry,
		retry.WithSort(feed.Sort{Field: cfg.Feed.SortBy, Order: cfg.Feed.SortOrder}),
		retry.WithTimeout(cfg.Feed.Timeout),
		retry.WithLogger(logger),
		retry.WithMetrics(m),
	)
}

// newEngine stacks the pagination engine on a retry controller over gw,
// both reporting to m.
func newEngine(cfg types.Config, gw feed.Gateway, m *observability.Metrics) *pager.Engine {
	return pager.New(newController(cfg, gw, m), cfg.Pagination,
		pager.WithLogger(logger),
		pager.WithMetrics(m),
	)
}

// startMetricsServer serves g on addr at /metrics until the returned stop
// function is called.
func startMetricsServer(addr string, g prometheus.Gatherer) (stop func(), boundAddr string, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, ln.Addr().String(), nil
}

// openPrefs opens the SQLite-backed preference store. The returned close
// function releases the database.
func openPrefs(ctx context.Context, path string) (*prefs.Store, func() error, error) {
	kv, err := prefs.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := prefs.Open(ctx, kv)
	if err != nil {
		kv.Close()
		return nil, nil, fmt.Errorf("loading preferences from %s: %w", path, err)
	}
	return store, kv.Close, nil
}
