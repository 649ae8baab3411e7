// Package consolidate folds a growing set of per-trip files into one
// persisted dataset, merging only files whose name is not yet recorded in
// the dataset's provenance column.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/KaramelBytes/tripmerge-cli/internal/dataset"
	"github.com/KaramelBytes/tripmerge-cli/internal/tripfile"
	"github.com/KaramelBytes/tripmerge-cli/internal/utils"
	"github.com/google/uuid"
)

// ProvenanceColumn records, per row, the trip file the row came from.
const ProvenanceColumn = "trip_file_name"

// ErrInvalidOptions reports an unusable Options value.
var ErrInvalidOptions = errors.New("invalid consolidation options")

// Options configures a Consolidator.
type Options struct {
	SourceDir        string
	ConsolidatedPath string
	// Pattern selects trip files by name. Nil means tripfile.DefaultPattern.
	Pattern *regexp.Regexp
	// Encoding and Delimiter describe the trip files; see tripfile.Options.
	Encoding  string
	Delimiter rune
	// DetectMissing merges only trip files absent from the provenance
	// column. When false every readable trip file is re-read and the
	// consolidated file is rebuilt from scratch.
	DetectMissing bool
	// DeleteAfterMerge removes merged trip files once the consolidated file
	// has been persisted. Destructive; requires DetectMissing.
	DeleteAfterMerge bool
	// VerifyBeforeDelete re-reads the persisted file and deletes a source
	// only if all of its rows are present.
	VerifyBeforeDelete bool

	Cache    Cache
	Logger   *slog.Logger
	Observer Observer
}

// DefaultOptions returns incremental, non-destructive options.
func DefaultOptions(sourceDir, consolidatedPath string) Options {
	return Options{
		SourceDir:          sourceDir,
		ConsolidatedPath:   consolidatedPath,
		Encoding:           tripfile.DefaultEncoding,
		Delimiter:          ';',
		DetectMissing:      true,
		VerifyBeforeDelete: true,
	}
}

// Observer receives the outcome of every Consolidate call.
type Observer interface {
	ObserveRun(res *Result, elapsed time.Duration, err error)
}

// SkippedFile is a trip file that could not be read this run. It stays in
// the source directory and is retried next time.
type SkippedFile struct {
	Name string
	Err  error
}

// Result describes one consolidation run.
type Result struct {
	RunID string

	// Dataset is the up-to-date consolidated table. Treat as read-only: it
	// may be shared with the cache.
	Dataset *dataset.Table

	Candidates []string
	Merged     []string
	Skipped    []SkippedFile

	// EmptyFiles had a header but no rows, so they never enter provenance.
	EmptyFiles []string

	Deleted []string
	// DeleteFailed were merged but could not be removed from disk.
	DeleteFailed []string

	RowsAdded int
	Persisted bool
	Cached    bool
	Warnings  []string
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Consolidator owns the write path to one consolidated file.
type Consolidator struct {
	opt     Options
	pattern *regexp.Regexp
	log     *slog.Logger

	read    func(path string, opt tripfile.Options) (*dataset.Table, error)
	persist func(path string, t *dataset.Table) error
	remove  func(path string) error
}

// New validates opt and returns a Consolidator.
func New(opt Options) (*Consolidator, error) {
	if opt.SourceDir == "" {
		return nil, fmt.Errorf("%w: source directory is required", ErrInvalidOptions)
	}
	if opt.ConsolidatedPath == "" {
		return nil, fmt.Errorf("%w: consolidated path is required", ErrInvalidOptions)
	}
	if opt.DeleteAfterMerge && !opt.DetectMissing {
		return nil, fmt.Errorf("%w: deleting sources requires missing-file detection", ErrInvalidOptions)
	}
	if _, err := tripfile.Lookup(opt.Encoding); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	pattern := opt.Pattern
	if pattern == nil {
		pattern = regexp.MustCompile(tripfile.DefaultPattern)
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Consolidator{
		opt:     opt,
		pattern: pattern,
		log:     log,
		read:    tripfile.Read,
		persist: writeTable,
		remove:  os.Remove,
	}, nil
}

// Consolidate brings the consolidated file up to date and returns it.
// Unreadable trip files are skipped with a warning; only a failure to load
// or persist the consolidated file is returned as an error, in which case
// the file on disk is unchanged.
func (c *Consolidator) Consolidate(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	res = &Result{RunID: uuid.NewString()}
	defer func() {
		if c.opt.Observer != nil {
			c.opt.Observer.ObserveRun(res, time.Since(start), err)
		}
	}()

	candidates, err := c.discover(res)
	if err != nil {
		return nil, err
	}
	res.Candidates = candidates
	snap := c.snapshot(candidates)

	if t, ok := c.cached(candidates, snap); ok {
		res.Dataset = t
		res.Cached = true
		return res, nil
	}

	existing, exists, err := c.load()
	if err != nil {
		return nil, err
	}
	if exists && existing.Len() > 0 && !existing.HasColumn(ProvenanceColumn) {
		res.warn("%s has no %s column; all trip files are treated as new", filepath.Base(c.opt.ConsolidatedPath), ProvenanceColumn)
	}

	missing := candidates
	if c.opt.DetectMissing {
		missing = Missing(candidates, existing)
		if len(missing) == 0 {
			res.Dataset = existing
			c.remember(res, candidates, snap)
			c.logRun(ctx, res)
			return res, nil
		}
	}

	frames, rows, err := c.readAll(ctx, missing, res)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		if !c.opt.DetectMissing && exists && len(candidates) > 0 {
			res.warn("no readable trip files; keeping existing %s", filepath.Base(c.opt.ConsolidatedPath))
		}
		res.Dataset = existing
		c.remember(res, candidates, snap)
		c.logRun(ctx, res)
		return res, nil
	}

	var base *dataset.Table
	if c.opt.DetectMissing && exists {
		base = existing
	}
	merged := dataset.Concat(append([]*dataset.Table{base}, frames...)...)
	merged.MoveColumnLast(ProvenanceColumn)

	if err := c.persist(c.opt.ConsolidatedPath, merged); err != nil {
		return nil, fmt.Errorf("persist consolidated dataset: %w", err)
	}
	res.Persisted = true
	res.Dataset = merged

	if c.opt.DeleteAfterMerge {
		c.deleteMerged(ctx, res, rows)
	}
	c.remember(res, candidates, snap)
	c.logRun(ctx, res)
	return res, nil
}

func (c *Consolidator) discover(res *Result) ([]string, error) {
	names, err := tripfile.Discover(c.opt.SourceDir, c.pattern, c.opt.ConsolidatedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.warn("source directory %s does not exist", c.opt.SourceDir)
			return nil, nil
		}
		return nil, err
	}
	return names, nil
}

// load reads the consolidated file. A missing file yields an empty table
// and exists=false.
func (c *Consolidator) load() (t *dataset.Table, exists bool, err error) {
	t, err = dataset.ReadFile(c.opt.ConsolidatedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataset.Empty(), false, nil
		}
		return nil, false, fmt.Errorf("load consolidated dataset: %w", err)
	}
	return t, true, nil
}

func (c *Consolidator) readAll(ctx context.Context, names []string, res *Result) ([]*dataset.Table, map[string]int, error) {
	topt := tripfile.Options{
		Encoding:         c.opt.Encoding,
		Delimiter:        c.opt.Delimiter,
		ProvenanceColumn: ProvenanceColumn,
	}
	var frames []*dataset.Table
	rows := make(map[string]int, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		t, err := c.read(filepath.Join(c.opt.SourceDir, name), topt)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Name: name, Err: err})
			res.warn("skipped %s: %v", name, err)
			c.log.WarnContext(ctx, "skipped unreadable trip file", "run_id", res.RunID, "file", name, "error", err)
			continue
		}
		if t.Len() == 0 {
			res.EmptyFiles = append(res.EmptyFiles, name)
			res.warn("%s has no data rows; it will be rescanned next run", name)
			continue
		}
		frames = append(frames, t)
		rows[name] = t.Len()
		res.Merged = append(res.Merged, name)
		res.RowsAdded += t.Len()
	}
	return frames, rows, nil
}

// deleteMerged removes merged sources. Failures are warnings: the merge
// has already been persisted and stands.
func (c *Consolidator) deleteMerged(ctx context.Context, res *Result, rows map[string]int) {
	var persisted map[string]int
	if c.opt.VerifyBeforeDelete {
		t, err := dataset.ReadFile(c.opt.ConsolidatedPath)
		if err != nil {
			res.warn("not deleting sources: cannot verify %s: %v", filepath.Base(c.opt.ConsolidatedPath), err)
			return
		}
		persisted = t.ValueCounts(ProvenanceColumn)
	}
	for _, name := range res.Merged {
		if persisted != nil && persisted[name] != rows[name] {
			res.warn("not deleting %s: persisted %d rows, merged %d", name, persisted[name], rows[name])
			continue
		}
		if err := c.remove(filepath.Join(c.opt.SourceDir, name)); err != nil {
			res.DeleteFailed = append(res.DeleteFailed, name)
			res.warn("could not delete %s: %v", name, err)
			c.log.WarnContext(ctx, "failed to delete merged trip file", "run_id", res.RunID, "file", name, "error", err)
			continue
		}
		res.Deleted = append(res.Deleted, name)
	}
}

func (c *Consolidator) logRun(ctx context.Context, res *Result) {
	c.log.InfoContext(ctx, "consolidation finished",
		"run_id", res.RunID,
		"candidates", len(res.Candidates),
		"merged", len(res.Merged),
		"skipped", len(res.Skipped),
		"deleted", len(res.Deleted),
		"rows_added", res.RowsAdded,
		"rows", res.Dataset.Len(),
		"persisted", res.Persisted,
	)
}

// Missing returns the candidates whose name does not appear in the
// provenance column of t, preserving candidate order.
func Missing(candidates []string, t *dataset.Table) []string {
	known := t.ValueCounts(ProvenanceColumn)
	var out []string
	for _, name := range candidates {
		if _, ok := known[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func writeTable(path string, t *dataset.Table) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return t.WriteCSV(w)
	})
}
