package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SourceDir != filepath.Join("Inputdata", "MeasurementData") {
		t.Fatalf("source_dir = %q", c.SourceDir)
	}
	if c.ConsolidatedPath != filepath.Join(c.SourceDir, DefaultConsolidatedName) {
		t.Fatalf("consolidated_path = %q", c.ConsolidatedPath)
	}
	if !c.DetectMissing || c.DeleteAfterMerge || !c.VerifyBeforeDelete {
		t.Fatalf("merge defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadFileEnvAndDotenv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd := t.TempDir()
	chdir(t, wd)

	cfgPath := filepath.Join(home, "custom.yaml")
	yml := "source_dir: /data/trips\nsource_encoding: iso-8859-1\ndelete_after_merge: true\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRIPMERGE_CONSOLIDATED_PATH", "~/out/combined.csv")
	if err := os.WriteFile(filepath.Join(wd, ".env"), []byte("TRIPMERGE_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv sets the variable process-wide; let t.Setenv restore it.
	t.Setenv("TRIPMERGE_LOG_LEVEL", "")
	os.Unsetenv("TRIPMERGE_LOG_LEVEL")

	c, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SourceDir != "/data/trips" || c.SourceEncoding != "iso-8859-1" || !c.DeleteAfterMerge {
		t.Fatalf("file values not applied: %+v", c)
	}
	if want := filepath.Join(home, "out", "combined.csv"); c.ConsolidatedPath != want {
		t.Fatalf("consolidated_path = %q, want %q", c.ConsolidatedPath, want)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("log_level from .env = %q", c.LogLevel)
	}
}

func TestSaveAndReload(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.SourceDir = "/srv/trips"
	c.SourceDelimiter = "tab"
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".tripmerge", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	back, err := Load("")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.SourceDir != "/srv/trips" {
		t.Fatalf("source_dir = %q", back.SourceDir)
	}
	if want := filepath.Join("/srv/trips", DefaultConsolidatedName); back.ConsolidatedPath != want {
		t.Fatalf("consolidated_path = %q, want %q", back.ConsolidatedPath, want)
	}
	if d, err := back.Delimiter(); err != nil || d != '\t' {
		t.Fatalf("delimiter = %q, %v", d, err)
	}
}

func TestValidate(t *testing.T) {
	base := Global{
		SourceDir:          "in",
		TripPattern:        `^Trip\d+\.csv$`,
		SourceEncoding:     "windows-1252",
		SourceDelimiter:    ";",
		DetectMissing:      true,
		VerifyBeforeDelete: true,
	}
	cases := []struct {
		name   string
		mutate func(*Global)
	}{
		{"empty source", func(g *Global) { g.SourceDir = "" }},
		{"bad pattern", func(g *Global) { g.TripPattern = "(" }},
		{"bad encoding", func(g *Global) { g.SourceEncoding = "utf-16" }},
		{"long delimiter", func(g *Global) { g.SourceDelimiter = ";;" }},
		{"quote delimiter", func(g *Global) { g.SourceDelimiter = `"` }},
		{"delete without detect", func(g *Global) { g.DeleteAfterMerge = true; g.DetectMissing = false }},
		{"bad log level", func(g *Global) { g.LogLevel = "loud" }},
		{"bad log format", func(g *Global) { g.LogFormat = "xml" }},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base invalid: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := base
			tc.mutate(&g)
			if err := g.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSetConsolidatedPath(t *testing.T) {
	c := &Global{SourceDir: "in"}
	c.ResolvePaths()
	c.SourceDir = "other"
	c.ResolvePaths()
	if want := filepath.Join("other", DefaultConsolidatedName); c.ConsolidatedPath != want {
		t.Fatalf("derived path = %q, want %q", c.ConsolidatedPath, want)
	}
	c.SetConsolidatedPath("/tmp/all.csv")
	c.SourceDir = "third"
	c.ResolvePaths()
	if c.ConsolidatedPath != "/tmp/all.csv" {
		t.Fatalf("explicit path overridden: %q", c.ConsolidatedPath)
	}
	c.SetConsolidatedPath("")
	if want := filepath.Join("third", DefaultConsolidatedName); c.ConsolidatedPath != want {
		t.Fatalf("reset path = %q, want %q", c.ConsolidatedPath, want)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}
