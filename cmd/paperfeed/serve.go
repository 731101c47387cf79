// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfeed/internal/feed"
	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/internal/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON feed proxy",
	Long: `Serve runs the paperfeed proxy. GET /api/arxiv accepts query, start,
maxResults, sortBy, sortOrder and subcategories and answers with
{"papers": [...]}; when the feed cannot be reached it still answers 200
with an empty list and an error message.

/healthz reports liveness and /metrics exposes Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	bindFlag("server.address", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	gw := feed.NewArxivGateway(appConfig.Feed)
	gw.UserAgent = loadedSecrets.UserAgent(appConfig.Feed.UserAgent)

	srv := proxy.NewServer(appConfig.Server, gw, proxy.Options{
		Roots:    appConfig.Feed.RootTaxonomies,
		Timeout:  appConfig.Feed.Timeout,
		Logger:   logger,
		Metrics:  metrics,
		Gatherer: reg,
	})

	logger.Info().Str("addr", appConfig.Server.Address).Str("endpoint", gw.Endpoint).Msg("proxy listening")
	if err := srv.Run(ctx, appConfig.Server.ShutdownTimeout); err != nil {
		return err
	}
	logger.Info().Msg("proxy stopped")
	return nil
}
