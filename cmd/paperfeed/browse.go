// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfeed/internal/display"
	"github.com/pdiddy/paperfeed/internal/observability"
)

var browseCmd = &cobra.Command{
	Use:   "browse [text]",
	Short: "Page through the feed interactively",
	Long: `Browse opens an interactive reader over the arXiv feed. The optional
text filters titles; --categories accepts category codes (cs.LG) or tags
(ml, cv, nlp). Press enter or "n" to load the next page, "s <i>" and
"l <i>" to save or like a paper, and "?" for the remaining commands.

Pages that cannot be fetched after retries show sample placeholder papers
unless pagination.show_placeholders is false.

Fetch and pagination counters are logged when the session ends, and are
served live at /metrics when --metrics-addr is set.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringSlice("categories", nil, "category codes or tags to filter by")
	browseCmd.Flags().String("proxy", "", "paperfeed proxy endpoint, e.g. http://localhost:8080/api/arxiv")
	browseCmd.Flags().Bool("placeholders", true, "show placeholder papers when the feed is unreachable")
	browseCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. localhost:9090")

	bindFlag("feed.proxy_url", browseCmd.Flags().Lookup("proxy"))
	bindFlag("pagination.show_placeholders", browseCmd.Flags().Lookup("placeholders"))

	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	categories, _ := cmd.Flags().GetStringSlice("categories")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openPrefs(ctx, appConfig.Preferences.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	defer observability.LogTotals(logger, reg, "browse session finished")
	if metricsAddr != "" {
		stopMetrics, bound, err := startMetricsServer(metricsAddr, reg)
		if err != nil {
			return err
		}
		defer stopMetrics()
		logger.Info().Str("addr", bound).Msg("serving metrics")
	}

	engine := newEngine(appConfig, newGateway(appConfig.Feed), metrics)

	session := display.NewSession(engine, store, os.Stdin, os.Stdout, display.Options{
		Text:       strings.Join(args, " "),
		Categories: categories,
		Roots:      appConfig.Feed.RootTaxonomies,
		Logger:     logger,
	})
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
