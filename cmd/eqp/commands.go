package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "eqp",
		Short: "Reconcile non-deterministic oracle results across validators",
		Long: `eqp runs LLM prompts and web fetches on every configured validator and
returns a value only when the results agree under an equivalence principle.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", envOr("CONFIG_PATH", "config/config.toml"), "path to the TOML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(newServeCmd(opts), newAskCmd(opts), newFetchCmd(opts))
	return root
}

func setupLogging(opts *rootOptions) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if opts.jsonLogs {
		h = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
