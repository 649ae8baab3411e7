package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/tripmerge-cli/internal/logging"
	"github.com/KaramelBytes/tripmerge-cli/internal/tripfile"
	"github.com/KaramelBytes/tripmerge-cli/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConsolidatedName is used when consolidated_path is not set.
const DefaultConsolidatedName = "TripsCombined.csv"

// Global configuration structure.
type Global struct {
	SourceDir        string `mapstructure:"source_dir" yaml:"source_dir"`
	ConsolidatedPath string `mapstructure:"consolidated_path" yaml:"consolidated_path"`
	TripPattern      string `mapstructure:"trip_pattern" yaml:"trip_pattern"`
	SourceEncoding   string `mapstructure:"source_encoding" yaml:"source_encoding"`
	SourceDelimiter  string `mapstructure:"source_delimiter" yaml:"source_delimiter"`

	// Merge behavior
	DetectMissing      bool `mapstructure:"detect_missing" yaml:"detect_missing"`
	DeleteAfterMerge   bool `mapstructure:"delete_after_merge" yaml:"delete_after_merge"`
	VerifyBeforeDelete bool `mapstructure:"verify_before_delete" yaml:"verify_before_delete"`
	CacheSize          int  `mapstructure:"cache_size" yaml:"cache_size"`

	// Observability
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`

	// consolidated_path was derived from source_dir; Save writes it empty.
	derivedOutput bool
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tripmerge/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	out := *c
	if out.derivedOutput {
		out.ConsolidatedPath = ""
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.tripmerge/config.yaml) > defaults.
// A .env file in the working directory is applied to the environment first.
func Load(cfgFile string) (*Global, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("TRIPMERGE")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source_dir", filepath.Join("Inputdata", "MeasurementData"))
	v.SetDefault("consolidated_path", "")
	v.SetDefault("trip_pattern", tripfile.DefaultPattern)
	v.SetDefault("source_encoding", tripfile.DefaultEncoding)
	v.SetDefault("source_delimiter", ";")
	v.SetDefault("detect_missing", true)
	v.SetDefault("delete_after_merge", false)
	v.SetDefault("verify_before_delete", true)
	v.SetDefault("cache_size", 16)
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		// A config file that does not exist yet is created by Save.
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.ResolvePaths()
	return &c, nil
}

// ResolvePaths expands a leading ~ and fills consolidated_path from
// source_dir when empty.
func (c *Global) ResolvePaths() {
	c.SourceDir = expandHome(c.SourceDir)
	if c.ConsolidatedPath == "" || c.derivedOutput {
		c.ConsolidatedPath = filepath.Join(c.SourceDir, DefaultConsolidatedName)
		c.derivedOutput = true
	}
	c.ConsolidatedPath = expandHome(c.ConsolidatedPath)
}

// SetConsolidatedPath overrides the output location. An empty path
// restores the default derived from source_dir.
func (c *Global) SetConsolidatedPath(p string) {
	c.ConsolidatedPath = p
	c.derivedOutput = p == ""
	c.ResolvePaths()
}

// Validate reports the first invalid setting.
func (c *Global) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return errors.New("source_dir is required")
	}
	if _, err := c.Pattern(); err != nil {
		return err
	}
	if _, err := tripfile.Lookup(c.SourceEncoding); err != nil {
		return fmt.Errorf("source_encoding: %w", err)
	}
	if _, err := c.Delimiter(); err != nil {
		return err
	}
	if c.DeleteAfterMerge && !c.DetectMissing {
		return errors.New("delete_after_merge requires detect_missing")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log_format: %s (use text or json)", c.LogFormat)
	}
	return nil
}

// Pattern compiles trip_pattern.
func (c *Global) Pattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.TripPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid trip_pattern: %w", err)
	}
	return re, nil
}

// Delimiter parses source_delimiter. "tab" and "\t" select a tab.
func (c *Global) Delimiter() (rune, error) {
	switch c.SourceDelimiter {
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(c.SourceDelimiter)
	if size == 0 || size != len(c.SourceDelimiter) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid source_delimiter: %q (use a single character)", c.SourceDelimiter)
	}
	return r, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tripmerge"), nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	rest := strings.TrimPrefix(p, "~")
	rest = strings.TrimPrefix(rest, string(os.PathSeparator))
	rest = strings.TrimPrefix(rest, "/")
	return filepath.Join(home, rest)
}
