package consolidate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tripmerge-cli/internal/dataset"
	"github.com/bluele/gcache"
)

// Entry is a memoized consolidation result. Fingerprint identifies the
// state of the source directory and consolidated file it was computed from.
type Entry struct {
	Fingerprint string
	Dataset     *dataset.Table
}

// Cache memoizes consolidated datasets across calls. Implementations must
// be safe for concurrent use if Consolidators sharing them are.
type Cache interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry)
	Remove(key string)
}

type lruCache struct {
	c gcache.Cache
}

// NewLRUCache returns a Cache holding up to size entries, evicting the least
// recently used.
func NewLRUCache(size int) Cache {
	if size <= 0 {
		size = 16
	}
	return &lruCache{c: gcache.New(size).LRU().Build()}
}

func (l *lruCache) Get(key string) (Entry, bool) {
	v, err := l.c.Get(key)
	if err != nil {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}

func (l *lruCache) Set(key string, e Entry) { _ = l.c.Set(key, e) }

func (l *lruCache) Remove(key string) { l.c.Remove(key) }

// Invalidate drops the memoized dataset for this Consolidator's inputs.
func (c *Consolidator) Invalidate() {
	if c.opt.Cache != nil {
		c.opt.Cache.Remove(c.cacheKey())
	}
}

// snapshot maps each candidate to its size and mtime as seen when the run
// started.
type snapshot map[string]string

func (c *Consolidator) snapshot(candidates []string) snapshot {
	s := make(snapshot, len(candidates))
	for _, name := range candidates {
		s[name] = statKey(filepath.Join(c.opt.SourceDir, name))
	}
	return s
}

func (c *Consolidator) cached(candidates []string, snap snapshot) (*dataset.Table, bool) {
	if c.opt.Cache == nil {
		return nil, false
	}
	e, ok := c.opt.Cache.Get(c.cacheKey())
	if !ok || e.Dataset == nil || e.Fingerprint != c.fingerprint(candidates, snap) {
		return nil, false
	}
	return e.Dataset, true
}

// remember stores the run's dataset under the fingerprint of the inputs the
// run actually saw: the candidates from the start of the run minus the ones
// it deleted. Files that arrive mid-run are not in the snapshot, so the next
// call misses. A run that left files pending is not cached; they must be
// retried.
func (c *Consolidator) remember(res *Result, candidates []string, snap snapshot) {
	if c.opt.Cache == nil || res.Dataset == nil {
		return
	}
	if len(res.Skipped)+len(res.EmptyFiles) > 0 {
		c.Invalidate()
		return
	}
	deleted := make(map[string]bool, len(res.Deleted))
	for _, name := range res.Deleted {
		deleted[name] = true
	}
	var seen []string
	for _, name := range candidates {
		if !deleted[name] {
			seen = append(seen, name)
		}
	}
	c.opt.Cache.Set(c.cacheKey(), Entry{Fingerprint: c.fingerprint(seen, snap), Dataset: res.Dataset})
}

func (c *Consolidator) cacheKey() string {
	src, _ := filepath.Abs(c.opt.SourceDir)
	dst, _ := filepath.Abs(c.opt.ConsolidatedPath)
	return fmt.Sprintf("%s\x00%s\x00%s\x00%q\x00%s\x00%t",
		src, dst, c.pattern.String(), c.opt.Delimiter, c.opt.Encoding, c.opt.DetectMissing)
}

// fingerprint hashes the name and snapshotted size and mtime of every
// candidate, and the current stat of the consolidated file.
func (c *Consolidator) fingerprint(candidates []string, snap snapshot) string {
	h := sha256.New()
	for _, name := range candidates {
		fmt.Fprintf(h, "%s\x00%s\n", name, snap[name])
	}
	fmt.Fprintf(h, "=%s\n", statKey(c.opt.ConsolidatedPath))
	return hex.EncodeToString(h.Sum(nil))
}

func statKey(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
