// Package tabular turns flattened records into cleaned, analysis-ready
// tables and splits comma-joined one-to-many columns into link tables.
//
// A Table is mutated in place by Clean and ExtractLinkTables; nothing here
// touches the filesystem. Every step is best-effort: a value that fails to
// coerce degrades to a default instead of failing the table.
package tabular

import (
	"sort"

	"flatcsv/internal/flatten"
)

// Table is a rectangular view over flat records. Columns carries the
// authoritative column order; Rows may lack keys until the missing-value
// fill runs (absent and nil both mean "missing").
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// BuildTable assembles records into a Table. The column set is the sorted
// union of every record's keys: flat records are maps, so sorting is what
// makes the output column order reproducible.
func BuildTable(recs []flatten.Record) *Table {
	set := make(map[string]struct{})
	for _, r := range recs {
		for k := range r {
			set[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([]map[string]any, len(recs))
	for i, r := range recs {
		rows[i] = map[string]any(r)
	}

	return &Table{Columns: cols, Rows: rows}
}

// Empty reports whether the table has no rows or no columns. Empty tables
// produce no output artifact.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// dropColumns removes the named columns from Columns and from every row.
func (t *Table) dropColumns(names map[string]bool) {
	if len(names) == 0 {
		return
	}

	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if names[c] {
			continue
		}
		kept = append(kept, c)
	}
	t.Columns = kept

	for _, row := range t.Rows {
		for name := range names {
			delete(row, name)
		}
	}
}
