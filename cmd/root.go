package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/tripmerge-cli/internal/config"
	"github.com/KaramelBytes/tripmerge-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	// Input/output flags (override config if set)
	flagSource    string
	flagOut       string
	flagPattern   string
	flagEncoding  string
	flagDelimiter string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "tripmerge",
	Short: "TripMerge CLI: consolidate per-trip battery measurement files",
	Long: `TripMerge folds per-trip measurement files (';'-separated, legacy encoded) into a single
UTF-8 CSV dataset with a trip_file_name provenance column, merging only trips not yet consolidated.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tripmerge/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagSource, "source", "s", "", "directory holding trip files (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagOut, "out", "o", "", "consolidated CSV path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagPattern, "pattern", "", "regexp selecting trip file names (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagEncoding, "encoding", "", "trip file encoding: windows-1252|iso-8859-1|iso-8859-15|cp850|utf-8")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "trip file delimiter: ';' | ',' | 'tab'")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: config subcommands can still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	l, err := logging.New(os.Stderr, level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using default logger\n", err)
		return
	}
	logger = l
}

// effectiveConfig returns a copy of the loaded config with command-line
// overrides applied, validated.
func effectiveConfig(cmd *cobra.Command) (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, errors.New("no configuration loaded")
	}
	c := *cfg
	f := cmd.Flags()
	if f.Changed("source") {
		c.SourceDir = flagSource
		c.ResolvePaths()
	}
	if f.Changed("out") {
		c.SetConsolidatedPath(flagOut)
	}
	if f.Changed("pattern") {
		c.TripPattern = flagPattern
	}
	if f.Changed("encoding") {
		c.SourceEncoding = flagEncoding
	}
	if f.Changed("delimiter") {
		c.SourceDelimiter = flagDelimiter
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}
