package tabular

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// GeneratedIDColumn is the column appended when no natural key exists.
const GeneratedIDColumn = "unique_id"

// idHashSep joins row values inside the identifier hash input.
const idHashSep = "||"

// IdentifierColumn returns the first column usable as the row identifier:
// a column named "id" or ending in "_id". Link tables reference this column
// as their foreign key.
func IdentifierColumn(cols []string) (string, bool) {
	for _, c := range cols {
		if c == "id" || strings.HasSuffix(c, "_id") {
			return c, true
		}
	}
	return "", false
}

// ensureIdentifier appends a GeneratedIDColumn when the table has no natural
// key. The generated value is a content hash of the row, so identical rows
// get identical identifiers on every rerun and any changed value produces a
// different one. Runs after dedup so discarded duplicates cannot influence
// anything, and before the missing-value fill so absent and empty hash alike
// as "".
func ensureIdentifier(t *Table) {
	if _, ok := IdentifierColumn(t.Columns); ok {
		return
	}

	for _, row := range t.Rows {
		row[GeneratedIDColumn] = rowID(row, t.Columns)
	}
	t.Columns = append(t.Columns, GeneratedIDColumn)
}

// rowID digests the row's canonical values joined with idHashSep in column
// order. MD5 keeps identifiers stable with the historical artifacts; this is
// a fingerprint, not a security boundary.
func rowID(row map[string]any, cols []string) string {
	var b strings.Builder
	b.Grow(len(cols) * 16)

	for i, col := range cols {
		if i > 0 {
			b.WriteString(idHashSep)
		}
		b.WriteString(CellString(row[col]))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
