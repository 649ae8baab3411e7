package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tripmerge-cli/internal/consolidate"
	cfgpkg "github.com/KaramelBytes/tripmerge-cli/internal/config"
	"github.com/KaramelBytes/tripmerge-cli/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	conDelete      bool
	conFullRebuild bool
	conNoVerify    bool
	conMetricsFile string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge new trip files into the consolidated dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("delete-after-merge") {
			c.DeleteAfterMerge = conDelete
		}
		if f.Changed("full-rebuild") {
			c.DetectMissing = !conFullRebuild
		}
		if f.Changed("no-verify") {
			c.VerifyBeforeDelete = !conNoVerify
		}
		if f.Changed("metrics-file") {
			c.MetricsFile = conMetricsFile
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		collector := metrics.NewCollector()
		con, err := newConsolidator(c, collector, nil)
		if err != nil {
			return err
		}
		res, runErr := con.Consolidate(cmd.Context())
		if c.MetricsFile != "" {
			if err := collector.WriteTextfile(c.MetricsFile); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: write metrics: %v\n", err)
			}
		}
		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}
		switch {
		case res.Persisted:
			fmt.Fprintf(out, "✓ Merged %d trip file(s) (+%d rows) into %s (%d rows total)\n",
				len(res.Merged), res.RowsAdded, c.ConsolidatedPath, res.Dataset.Len())
		case res.Dataset.Len() == 0:
			fmt.Fprintf(out, "✓ No trip data found in %s\n", c.SourceDir)
		default:
			fmt.Fprintf(out, "✓ Up to date: %s (%d rows)\n", c.ConsolidatedPath, res.Dataset.Len())
		}
		if len(res.Deleted) > 0 {
			fmt.Fprintf(out, "✓ Deleted merged trip files: %s\n", strings.Join(res.Deleted, ", "))
		}
		return nil
	},
}

// newConsolidator maps the effective config onto consolidator options. cache may be nil.
func newConsolidator(c *cfgpkg.Global, obs consolidate.Observer, cache consolidate.Cache) (*consolidate.Consolidator, error) {
	pattern, err := c.Pattern()
	if err != nil {
		return nil, err
	}
	delim, err := c.Delimiter()
	if err != nil {
		return nil, err
	}
	opt := consolidate.DefaultOptions(c.SourceDir, c.ConsolidatedPath)
	opt.Pattern = pattern
	opt.Encoding = c.SourceEncoding
	opt.Delimiter = delim
	opt.DetectMissing = c.DetectMissing
	opt.DeleteAfterMerge = c.DeleteAfterMerge
	opt.VerifyBeforeDelete = c.VerifyBeforeDelete
	opt.Logger = logger
	opt.Cache = cache
	if obs != nil {
		opt.Observer = obs
	}
	return consolidate.New(opt)
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
	consolidateCmd.Flags().BoolVar(&conDelete, "delete-after-merge", false, "delete trip files once their rows are persisted (irreversible)")
	consolidateCmd.Flags().BoolVar(&conFullRebuild, "full-rebuild", false, "re-read every trip file and rebuild the dataset instead of merging only new files")
	consolidateCmd.Flags().BoolVar(&conNoVerify, "no-verify", false, "skip re-reading the persisted dataset before deleting sources")
	consolidateCmd.Flags().StringVar(&conMetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
}
