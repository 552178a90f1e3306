package tabular

import (
	"strings"

	"flatcsv/internal/textclean"
)

// Options are the normalization toggles. The zero value disables them all;
// DefaultOptions matches the historical tool.
type Options struct {
	// StripSpecialChars removes emoji and other symbol runes from text
	// during the trimming step.
	StripSpecialChars bool

	// AutoGenerateIDs appends a content-hash unique_id column when no
	// natural key exists. Without an identifier, link-table extraction is
	// skipped.
	AutoGenerateIDs bool

	// ExtractDateFeatures appends year/month/day/weekday/hour companion
	// columns for every parsed date column.
	ExtractDateFeatures bool
}

// DefaultOptions mirror the original tool's constants.
func DefaultOptions() Options {
	return Options{
		StripSpecialChars:   false,
		AutoGenerateIDs:     true,
		ExtractDateFeatures: true,
	}
}

// Clean normalizes t in place. Step order is a contract: identifier hashes
// see deduplicated, unfilled rows; name-based coercion sees normalized
// names; the trim pass sees final values. Link-table extraction is separate
// (ExtractLinkTables) because it needs the source-file prefix and returns
// new tables.
func Clean(t *Table, opts Options) {
	dedupeRows(t)
	dropEmptyColumns(t)
	if opts.AutoGenerateIDs {
		ensureIdentifier(t)
	}
	fillMissing(t)
	normalizeColumnNames(t)
	dateCols := coerceDates(t)
	coerceMetrics(t, dateCols)
	if opts.ExtractDateFeatures {
		addDateFeatures(t, dateCols)
	}
	remapMediaType(t)
	trimStrings(t, opts.StripSpecialChars)
}

// dedupeRows removes exact-duplicate rows, keeping the first occurrence.
func dedupeRows(t *Table) {
	if len(t.Rows) < 2 {
		return
	}

	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		fp := rowFingerprint(row, t.Columns)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		kept = append(kept, row)
	}
	t.Rows = kept
}

// dropEmptyColumns removes columns that no row has a value for. An explicit
// empty string counts as a value; only absent and null are "no value", so a
// column of empty strings survives the way it always has.
func dropEmptyColumns(t *Table) {
	empty := make(map[string]bool)
	for _, col := range t.Columns {
		allMissing := true
		for _, row := range t.Rows {
			if v, ok := row[col]; ok && v != nil {
				allMissing = false
				break
			}
		}
		if allMissing && len(t.Rows) > 0 {
			empty[col] = true
		}
	}
	t.dropColumns(empty)
}

// fillMissing replaces absent and null values with "" so downstream
// consumers never branch on null.
func fillMissing(t *Table) {
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			if v, ok := row[col]; !ok || v == nil {
				row[col] = ""
			}
		}
	}
}

// NormalizeColumnName trims the name, replaces each space, dot and hyphen
// with an underscore, and lowercases the result. Runs are not collapsed: the
// normalized name stays reversible against the flattened path.
func NormalizeColumnName(s string) string {
	s = strings.TrimSpace(s)
	r := strings.NewReplacer(" ", "_", ".", "_", "-", "_")
	return strings.ToLower(r.Replace(s))
}

// normalizeColumnNames rewrites the column set and every row's keys. When
// two source names normalize to the same target, the later column replaces
// the earlier one entirely, consistent with last-write-wins in the
// flattener.
func normalizeColumnNames(t *Table) {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = NormalizeColumnName(col)
	}

	// Rebuild each row in column order so a colliding later column wins,
	// including its absences.
	for ri, row := range t.Rows {
		next := make(map[string]any, len(row))
		for i, col := range t.Columns {
			if v, ok := row[col]; ok {
				next[names[i]] = v
			} else {
				delete(next, names[i])
			}
		}
		t.Rows[ri] = next
	}

	// Keep only the last occurrence of each normalized name.
	kept := make([]string, 0, len(names))
	for i, name := range names {
		dup := false
		for _, later := range names[i+1:] {
			if later == name {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, name)
		}
	}
	t.Columns = kept
}

// trimStrings strips edge whitespace from every textual value; with scrub,
// emoji and other symbol runes are removed first.
func trimStrings(t *Table, scrub bool) {
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			s, ok := row[col].(string)
			if !ok {
				continue
			}
			if scrub {
				s = textclean.Strip(s)
			}
			if hasEdgeSpace(s) {
				s = strings.TrimSpace(s)
			}
			row[col] = s
		}
	}
}
