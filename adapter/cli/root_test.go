package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqh/subscription-lib/pkg/observability"
)

func runPersistentPreRun(t *testing.T) {
	t.Helper()
	cmd := &cobra.Command{Use: "noop"}
	cmd.SetContext(context.Background())
	rootCmd.PersistentPreRun(cmd, nil)
}

func TestVerboseFlag(t *testing.T) {
	prevLogger := logger
	prevVerbose := verbose
	t.Cleanup(func() {
		logger = prevLogger
		verbose = prevVerbose
	})

	t.Run("lowers the log level to debug", func(t *testing.T) {
		cfg := observability.DefaultLogConfig()
		cfg.Level = observability.LogLevelInfo
		cfg.Output = io.Discard
		logger = observability.NewLogger(cfg)
		verbose = true

		require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
		runPersistentPreRun(t)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("leaves the configured level alone when unset", func(t *testing.T) {
		cfg := observability.DefaultLogConfig()
		cfg.Level = observability.LogLevelInfo
		cfg.Output = io.Discard
		logger = observability.NewLogger(cfg)
		verbose = false

		runPersistentPreRun(t)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})
}
