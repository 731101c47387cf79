// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperfeed CLI: an interactive
// arXiv browser, the JSON proxy server, and saved/liked collection tools.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfeed/internal/observability"
	"github.com/pdiddy/paperfeed/internal/secrets"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root PersistentPreRunE.
var (
	appConfig     types.Config
	logger        zerolog.Logger
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the paperfeed CLI.
var rootCmd = &cobra.Command{
	Use:   "paperfeed",
	Short: "Browse the arXiv feed with reliable infinite scrolling",
	Long: `paperfeed turns a text filter and a set of categories into arXiv feed
queries, pages through the results with bounded retries, and keeps the
papers you save or like in a local SQLite database.

Use browse for the interactive reader, serve to run the JSON proxy that
browsers and other paperfeed clients can page through, and saved or liked
to manage your collections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = observability.NewLogger(cfg.Logging)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperfeed.yaml or ~/.config/paperfeed/paperfeed.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files (arxiv-contact-email)")
	rootCmd.PersistentFlags().String("db", "", "preferences database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	bindFlag("preferences.db_path", rootCmd.PersistentFlags().Lookup("db"))
	bindFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperfeed")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperfeed"))
		}
	}

	setDefaults(viper.GetViper())
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
