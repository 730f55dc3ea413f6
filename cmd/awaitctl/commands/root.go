package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Environment variables read for flag defaults.
const (
	envLogLevel  = "AWAIT_LOG_LEVEL"
	envLogFormat = "AWAIT_LOG_FORMAT"
	envSpecPath  = "AWAIT_SPEC_PATH"
)

type rootOptions struct {
	specPaths []string
	logLevel  string
	logFormat string
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit string) error {
	return newRootCommand(version, commit).ExecuteContext(ctx)
}

func newRootCommand(version, commit string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "awaitctl",
		Short: "Inspect waiter specs and wait on HTTP endpoints",
		Long: `awaitctl works with waiter spec documents (YAML, JSON or CUE).

It can validate spec files, preview the delay schedule of a waiter and poll
an HTTP endpoint until a named waiter's acceptors reach a terminal state.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log.Logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().StringSliceVarP(&opts.specPaths, "spec", "s", defaultSpecPaths(), "spec files or directories (env "+envSpecPath+")")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr(envLogLevel, "info"), "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", envOr(envLogFormat, "console"), "log format: console or json")

	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newDelaysCommand(opts))
	rootCmd.AddCommand(newHTTPCommand(opts))

	return rootCmd
}

func defaultSpecPaths() []string {
	v := os.Getenv(envSpecPath)
	if v == "" {
		return nil
	}
	var paths []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
