// Package main provides intakectl, a terminal companion for the recruitment intake service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-recruitment-intake/config"
	"go-recruitment-intake/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "intakectl",
	Short:         "Recruitment intake command line tools",
	Long:          "intakectl watches the admin notification feed, submits resumes to the recruitment API and mints admin tokens for the dashboard.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		// stdout is reserved for command output
		logger.Log = logger.New(cmd.ErrOrStderr(), logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
