package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/tripmerge-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set TripMerge configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "source_dir: %s\n", cfg.SourceDir)
		fmt.Fprintf(out, "consolidated_path: %s\n", cfg.ConsolidatedPath)
		fmt.Fprintf(out, "trip_pattern: %s\n", cfg.TripPattern)
		fmt.Fprintf(out, "source_encoding: %s\n", cfg.SourceEncoding)
		fmt.Fprintf(out, "source_delimiter: %q\n", cfg.SourceDelimiter)
		fmt.Fprintf(out, "detect_missing: %t\n", cfg.DetectMissing)
		fmt.Fprintf(out, "delete_after_merge: %t\n", cfg.DeleteAfterMerge)
		fmt.Fprintf(out, "verify_before_delete: %t\n", cfg.VerifyBeforeDelete)
		fmt.Fprintf(out, "cache_size: %d\n", cfg.CacheSize)
		if cfg.MetricsFile != "" {
			fmt.Fprintf(out, "metrics_file: %s\n", cfg.MetricsFile)
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		switch key {
		case "source_dir":
			next.SourceDir = val
			next.ResolvePaths()
		case "consolidated_path":
			next.SetConsolidatedPath(val)
		case "trip_pattern":
			next.TripPattern = val
		case "source_encoding":
			next.SourceEncoding = val
		case "source_delimiter":
			next.SourceDelimiter = val
		case "detect_missing", "delete_after_merge", "verify_before_delete":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %v", key, val)
			}
			switch key {
			case "detect_missing":
				next.DetectMissing = b
			case "delete_after_merge":
				next.DeleteAfterMerge = b
			default:
				next.VerifyBeforeDelete = b
			}
		case "cache_size":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for cache_size: %v", val)
			}
			next.CacheSize = i
		case "metrics_file":
			next.MetricsFile = val
		case "log_level":
			next.LogLevel = val
		case "log_format":
			next.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
