package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustTable(t *testing.T, cols []string, rows ...[]string) *Table {
	t.Helper()
	tb, err := New(cols...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, r := range rows {
		if err := tb.AddRow(r); err != nil {
			t.Fatalf("AddRow: %v", err)
		}
	}
	return tb
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New("a", "b", "a")
	if !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("err = %v, want ErrDuplicateColumn", err)
	}
}

func TestConcatColumnUnion(t *testing.T) {
	a := mustTable(t, []string{"x", "y"}, []string{"1", "2"}, []string{"3", "4"})
	b := mustTable(t, []string{"y", "z"}, []string{"5", "6"})

	got := Concat(a, nil, b)
	if want := []string{"x", "y", "z"}; !equalStrings(got.Columns(), want) {
		t.Fatalf("columns = %v, want %v", got.Columns(), want)
	}
	if got.Len() != 3 {
		t.Fatalf("rows = %d, want 3", got.Len())
	}
	if _, ok := got.Get(0, "z"); ok {
		t.Fatalf("row from a should be absent for z")
	}
	if _, ok := got.Get(2, "x"); ok {
		t.Fatalf("row from b should be absent for x")
	}
	if v, ok := got.Get(2, "y"); !ok || v != "5" {
		t.Fatalf("row 2 y = %q,%v, want 5", v, ok)
	}
	if !equalStrings(got.Row(1), []string{"3", "4", ""}) {
		t.Fatalf("row 1 = %v", got.Row(1))
	}
}

func TestConcatOfNothingIsEmpty(t *testing.T) {
	got := Concat()
	if got.Len() != 0 || len(got.Columns()) != 0 {
		t.Fatalf("expected empty table, got %d rows %v", got.Len(), got.Columns())
	}
}

func TestFillAndMoveColumnLast(t *testing.T) {
	tb := mustTable(t, []string{"a", "b"}, []string{"1", "2"})
	tb.Fill("src", "Trip001.csv")
	if v, ok := tb.Get(0, "src"); !ok || v != "Trip001.csv" {
		t.Fatalf("src = %q", v)
	}
	other := mustTable(t, []string{"c"}, []string{"3"})
	merged := Concat(tb, other)
	merged.MoveColumnLast("src")
	if want := []string{"a", "b", "c", "src"}; !equalStrings(merged.Columns(), want) {
		t.Fatalf("columns = %v, want %v", merged.Columns(), want)
	}
	if !equalStrings(merged.Row(0), []string{"1", "2", "", "Trip001.csv"}) {
		t.Fatalf("row 0 = %v", merged.Row(0))
	}
	if v, _ := merged.Get(1, "c"); v != "3" {
		t.Fatalf("row 1 c = %q", v)
	}
}

func TestValueCountsAndDistinct(t *testing.T) {
	tb := mustTable(t, []string{"v"}, []string{"b"}, []string{"a"}, []string{"b"}, []string{""})
	counts := tb.ValueCounts("v")
	if counts["a"] != 1 || counts["b"] != 2 || len(counts) != 2 {
		t.Fatalf("counts = %v", counts)
	}
	if got := tb.Distinct("v"); !equalStrings(got, []string{"a", "b"}) {
		t.Fatalf("distinct = %v", got)
	}
	if got := tb.ValueCounts("missing"); len(got) != 0 {
		t.Fatalf("missing column counts = %v", got)
	}
}

func TestReadCSVSemicolonAndBlankHeaders(t *testing.T) {
	in := "\ufeffTime [s]; ;Velocity\n0;x;1,5\n1;y;2,0\n"
	tb, err := ReadCSV(strings.NewReader(in), CSVOptions{Comma: ';', TrimLeadingSpace: true, RenameBlankHeaders: true})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if want := []string{"Time [s]", "Unnamed: 1", "Velocity"}; !equalStrings(tb.Columns(), want) {
		t.Fatalf("columns = %v, want %v", tb.Columns(), want)
	}
	if v, _ := tb.Get(1, "Velocity"); v != "2,0" {
		t.Fatalf("velocity = %q", v)
	}
}

func TestReadCSVRaggedRowFails(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a;b\n1;2\n3\n"), CSVOptions{Comma: ';'})
	if err == nil {
		t.Fatalf("expected error for ragged row")
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tb.Len() != 0 || len(tb.Columns()) != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestWriteCSVRoundTripIsStable(t *testing.T) {
	tb := mustTable(t, []string{"a", "note"},
		[]string{"1", "has, comma"},
		[]string{"", "quote \"q\""},
		[]string{"3", "Grad °C"},
	)
	var first bytes.Buffer
	if err := tb.WriteCSV(&first); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	p := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(p, first.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var second bytes.Buffer
	if err := back.WriteCSV(&second); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("round trip changed bytes:\n%s\nvs\n%s", first.String(), second.String())
	}
}

func TestPreview(t *testing.T) {
	tb := mustTable(t, []string{"a", "trip"},
		[]string{"1", "Trip001.csv"},
		[]string{"2|x", "Trip001.csv"},
		[]string{"3", "Trip002.csv"},
	)
	md := tb.Preview("combined.csv", 2, "trip")
	for _, want := range []string{
		"File: combined.csv",
		"Rows: 3",
		"- Trip001.csv: 2",
		"- Trip002.csv: 1",
		"| a | trip |",
		"| 2/x | Trip001.csv |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("preview missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "| 3 |") {
		t.Fatalf("preview should be limited to 2 rows:\n%s", md)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ä", 76) + "°C" + strings.Repeat("x", 10)
	tb := mustTable(t, []string{"temp"}, []string{long})
	md := tb.Preview("", 1, "")
	if !utf8.ValidString(md) {
		t.Fatalf("preview is not valid UTF-8")
	}
	want := strings.Repeat("ä", 76) + "°..."
	if !strings.Contains(md, want) {
		t.Fatalf("preview missing truncated cell %q:\n%s", want, md)
	}
}
