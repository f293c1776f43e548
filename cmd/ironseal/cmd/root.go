package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfg = config.Load()

	keyFile      string
	purpose      string
	legacySecret string
	logLevel     string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "ironseal",
	Short: "IronSeal encrypts secrets stored in configuration",
	Long: `IronSeal keeps passwords and other secrets in configuration files as
self-describing encrypted envelopes, and reads older formats and plain text
back so existing configuration keeps working.
Complete documentation is available at https://github.com/jmcleod/ironseal`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(logLevel, cmd.ErrOrStderr())
		slog.SetDefault(logger)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&keyFile, "key-file", cfg.KeyFile, "Path to the master key file")
	rootCmd.PersistentFlags().StringVar(&purpose, "purpose", cfg.Purpose, "Purpose the confidential key is derived for")
	rootCmd.PersistentFlags().StringVar(&legacySecret, "legacy-secret", cfg.LegacySecret, "Secret text of the historical key, to read values written before per-installation keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLevel(level)}))
}
