package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/internal/metrics"
	"github.com/jmcleod/ironseal/project"
	"github.com/jmcleod/ironseal/secret"
)

const metricsNamespace = "ironseal"

var (
	upgradeConcurrency int
	metricsTextfile    string
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Rewrite stored projects in the current envelope format",
	Long: `Loads and saves every stored project so that secrets kept in a legacy
format or as plain text are rewritten as current envelopes. Projects already
in the current format are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().IntVar(&upgradeConcurrency, "concurrency", cfg.UpgradeConcurrency, "Projects rewritten in parallel")
	upgradeCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file when done")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg, metricsNamespace)
	if err != nil {
		return err
	}

	var n int
	err = withStore(ctx, func(ctx context.Context, store *project.Store) error {
		var err error
		n, err = store.Upgrade(ctx, upgradeConcurrency)
		return err
	}, secret.WithObserver(recorder))
	recorder.ObserveUpgrade(n, err)

	if metricsTextfile != "" {
		if werr := metrics.WriteTextfile(metricsTextfile, reg); werr != nil {
			logger.Warn("could not write metrics", "path", metricsTextfile, "error", werr)
		}
	}
	if err != nil {
		return fmt.Errorf("upgrade stopped after rewriting %d project(s): %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Upgraded %d project(s)\n", n)
	return nil
}
