// Package tripfile discovers and decodes raw per-trip measurement files.
//
// Trip files are ';'-delimited text in a legacy single-byte charset. Reading
// converts them to UTF-8 tables tagged with the originating file name.
package tripfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/tripmerge-cli/internal/dataset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultPattern matches names such as Trip001.csv or TripA01.csv.
const DefaultPattern = `(?i)^trip[a-z]*[0-9]+\.csv$`

// DefaultEncoding is the charset the measurement loggers write.
const DefaultEncoding = "windows-1252"

var (
	// ErrInvalidEncoding reports bytes that are not valid in the source charset.
	ErrInvalidEncoding = errors.New("invalid text encoding")
	// ErrReservedColumn reports a header that collides with the provenance column.
	ErrReservedColumn = errors.New("reserved column name")
)

// Options controls how trip files are decoded.
type Options struct {
	// Encoding names the source charset; see Lookup.
	Encoding string
	// Delimiter separates fields. If 0, ';' is used.
	Delimiter rune
	// ProvenanceColumn is added to every row with the file name as value.
	ProvenanceColumn string
}

// Lookup resolves a charset name. An empty name selects DefaultEncoding.
// "utf-8" returns a nil encoding: input is validated but not transcoded.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	case "cp850":
		return charmap.CodePage850, nil
	case "utf-8", "utf8":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}

// Discover lists the names of regular files in dir that match pattern, in
// lexicographic order. Paths listed in exclude are never returned.
func Discover(dir string, pattern *regexp.Regexp, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			skip[abs] = struct{}{}
		}
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !pattern.MatchString(e.Name()) {
			continue
		}
		if abs, err := filepath.Abs(filepath.Join(dir, e.Name())); err == nil {
			if _, ok := skip[abs]; ok {
				continue
			}
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read decodes one trip file and tags each row with its base name in the
// provenance column.
func Read(path string, opt Options) (*dataset.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	text, err := decode(raw, opt.Encoding)
	if err != nil {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ';'
	}
	t, err := dataset.ReadCSV(bytes.NewReader(text), dataset.CSVOptions{
		Comma:              delim,
		TrimLeadingSpace:   true,
		RenameBlankHeaders: true,
	})
	if err != nil {
		return nil, err
	}
	if opt.ProvenanceColumn != "" {
		if t.HasColumn(opt.ProvenanceColumn) {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, opt.ProvenanceColumn)
		}
		t.Fill(opt.ProvenanceColumn, filepath.Base(path))
	}
	return t, nil
}

func decode(raw []byte, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: not utf-8", ErrInvalidEncoding)
		}
		return raw, nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return out, nil
}
