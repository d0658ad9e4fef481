package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// execute runs intakectl in-process. Flag values live in package variables,
// so every flag is reset to its default first.
func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	// cobra keeps the first context it hands a subcommand; drop it so this
	// run's ctx is used instead of a previous, already cancelled one.
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(nil)
	}
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Run("Should prefer the first set value", func(t *testing.T) {
		assert.Equal(t, "flag", firstNonEmpty("", "flag", "env"))
		assert.Empty(t, firstNonEmpty("", ""))
	})
}
