// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfeed/pkg/types"
)

// setDefaults registers every configuration key with its default so that
// environment variables (PAPERFEED_FEED_TIMEOUT, ...) are picked up.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("feed.timeout", d.Feed.Timeout)
	v.SetDefault("feed.user_agent", d.Feed.UserAgent)
	v.SetDefault("feed.requests_per_second", d.Feed.RequestsPerSecond)
	v.SetDefault("feed.endpoint", d.Feed.Endpoint)
	v.SetDefault("feed.proxy_url", d.Feed.ProxyURL)
	v.SetDefault("feed.sort_by", d.Feed.SortBy)
	v.SetDefault("feed.sort_order", d.Feed.SortOrder)
	v.SetDefault("feed.root_taxonomies", d.Feed.RootTaxonomies)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.placeholder_size", d.Retry.PlaceholderSize)

	v.SetDefault("pagination.batch_size", d.Pagination.BatchSize)
	v.SetDefault("pagination.min_interval", d.Pagination.MinInterval)
	v.SetDefault("pagination.empty_page_limit", d.Pagination.EmptyPageLimit)
	v.SetDefault("pagination.low_water_mark", d.Pagination.LowWaterMark)
	v.SetDefault("pagination.reopen_jump", d.Pagination.ReopenJump)
	v.SetDefault("pagination.max_reopens", d.Pagination.MaxReopens)
	v.SetDefault("pagination.show_placeholders", d.Pagination.ShowPlaceholders)

	v.SetDefault("preferences.db_path", d.Preferences.DBPath)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}

// bindEnv maps PAPERFEED_<SECTION>_<KEY> environment variables onto
// configuration keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PAPERFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes the global viper state into a validated Config.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bindFlag binds a flag to a configuration key; flags set on the command
// line override file and environment values.
func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}
