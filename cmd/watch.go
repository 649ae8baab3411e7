package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tripmerge-cli/internal/consolidate"
	"github.com/KaramelBytes/tripmerge-cli/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	watchInterval   time.Duration
	watchIterations int
	watchDelete     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run consolidation on an interval, serving unchanged inputs from cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("delete-after-merge") {
			c.DeleteAfterMerge = watchDelete
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
		}
		if watchInterval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		collector := metrics.NewCollector()
		con, err := newConsolidator(c, collector, consolidate.NewLRUCache(c.CacheSize))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		out := cmd.OutOrStdout()
		for i := 0; watchIterations == 0 || i < watchIterations; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
			res, err := con.Consolidate(ctx)
			if c.MetricsFile != "" {
				if werr := collector.WriteTextfile(c.MetricsFile); werr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: write metrics: %v\n", werr)
				}
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// A failed persist leaves the previous file intact; try again next tick.
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: consolidation failed: %v\n", err)
				continue
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
			}
			if res.Persisted {
				fmt.Fprintf(out, "%s ✓ merged %d trip file(s), %d rows total\n",
					time.Now().Format(time.RFC3339), len(res.Merged), res.Dataset.Len())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "time between consolidation runs")
	watchCmd.Flags().IntVar(&watchIterations, "iterations", 0, "stop after this many runs (0 = until interrupted)")
	watchCmd.Flags().BoolVar(&watchDelete, "delete-after-merge", false, "delete trip files once their rows are persisted (irreversible)")
}
