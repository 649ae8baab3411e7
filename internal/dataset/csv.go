package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVOptions controls how delimited text is parsed.
type CSVOptions struct {
	// Comma is the field delimiter. If 0, ',' is used.
	Comma rune
	// TrimLeadingSpace drops leading white space in fields.
	TrimLeadingSpace bool
	// RenameBlankHeaders names empty header cells "Unnamed: <index>".
	RenameBlankHeaders bool
}

// ReadCSV parses a header row followed by data rows. Every row must have as
// many fields as the header; a ragged row is reported as an error.
func ReadCSV(r io.Reader, opt CSVOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.TrimLeadingSpace = opt.TrimLeadingSpace
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" && opt.RenameBlankHeaders {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		names[i] = h
	}
	t, err := New(names...)
	if err != nil {
		return nil, err
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
		if err := t.AddRow(rec); err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
	}
	return t, nil
}

// ReadFile loads a comma-separated UTF-8 file written by WriteCSV.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	t, err := ReadCSV(f, CSVOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes t as comma-separated text with a header row. A table with
// no columns writes nothing.
func (t *Table) WriteCSV(w io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
