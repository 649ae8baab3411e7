package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Preview renders a compact markdown summary of t: shape, the first rows as
// a table, and row counts per value of groupCol (if non-empty).
func (t *Table) Preview(name string, rows int, groupCol string) string {
	var b strings.Builder
	b.WriteString("[DATASET]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", t.Len()))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(t.columns)))

	if groupCol != "" && t.HasColumn(groupCol) {
		counts := t.ValueCounts(groupCol)
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(fmt.Sprintf("\n[ROWS BY %s]\n", safeName(groupCol)))
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(k), counts[k]))
		}
	}

	head := t.Head(rows)
	if head.Len() == 0 || len(t.columns) == 0 {
		return b.String()
	}
	b.WriteString("\n[HEAD]\n")
	b.WriteString("| ")
	for i, c := range t.columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c))
	}
	b.WriteString(" |\n| ")
	for i := range t.columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range head.rows {
		b.WriteString("| ")
		for i, val := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			if r := []rune(val); len(r) > 80 {
				val = string(r[:77]) + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func safeName(s string) string {
	if s == "" {
		return "(blank)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
