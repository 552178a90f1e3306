package tabular

import (
	"strings"
)

// LinkTable is one extracted one-to-many relationship: every
// comma-separated element of the source column becomes a row linking back
// to the main table's identifier.
type LinkTable struct {
	// Name is "<prefix>_<column>_table", the stem of the output artifact.
	Name string

	// Table has columns [identifier, <column>_item, index].
	Table *Table
}

// linkIndexColumn records an element's position within its source list.
const linkIndexColumn = "index"

// ExtractLinkTables splits every comma-bearing textual column of t into a
// link table and clears the source column's string values afterwards, so
// the relationship is represented exactly once.
//
// Behavior:
//   - Requires an identifier column; without one (ids disabled, no natural
//     key) no extraction happens and t is untouched.
//   - A column qualifies when any of its string values contains a comma.
//     The identifier column itself never qualifies. This is a heuristic:
//     free text containing a comma gets split too, a known limitation.
//   - Every string value of a qualifying column is split, including ones
//     without a comma (they yield a single element). Blank elements are
//     skipped but still consume their position index.
//   - Non-string values (coerced dates, metrics) are never split and never
//     cleared.
//
// Tables are returned in column order; a qualifying column whose elements
// are all blank clears without producing a table.
func ExtractLinkTables(t *Table, prefix string) []LinkTable {
	key, ok := IdentifierColumn(t.Columns)
	if !ok {
		return nil
	}

	var out []LinkTable
	for _, col := range t.Columns {
		if col == key || !columnHasComma(t, col) {
			continue
		}

		lt := buildLinkTable(t, key, col, prefix)
		if len(lt.Table.Rows) > 0 {
			out = append(out, lt)
		}

		for _, row := range t.Rows {
			if _, isStr := row[col].(string); isStr {
				row[col] = ""
			}
		}
	}
	return out
}

func columnHasComma(t *Table, col string) bool {
	for _, row := range t.Rows {
		if s, ok := row[col].(string); ok && strings.Contains(s, ",") {
			return true
		}
	}
	return false
}

func buildLinkTable(t *Table, key, col, prefix string) LinkTable {
	itemCol := col + "_item"
	link := &Table{Columns: []string{key, itemCol, linkIndexColumn}}

	for _, row := range t.Rows {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		for idx, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			link.Rows = append(link.Rows, map[string]any{
				key:             row[key],
				itemCol:         item,
				linkIndexColumn: int64(idx),
			})
		}
	}

	return LinkTable{
		Name:  prefix + "_" + col + "_table",
		Table: link,
	}
}
