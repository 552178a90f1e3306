package tabular

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellString renders a cell value the way output artifacts expect it.
//
// Canonicalization rules:
//   - nil renders as the empty string (missing marker).
//   - time.Time renders as RFC3339 in UTC.
//   - json.Number keeps its literal form.
//   - Numeric types use strconv, not fmt.Sprint.
//
// Row fingerprints and identifier hashes build on the same rendering so a
// value compares equal to itself across reruns.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// fingerprintSep separates fields inside a row fingerprint; missingMark keeps
// an absent value distinct from an empty string.
const (
	fingerprintSep = "\x1f"
	missingMark    = "\x00"
)

// rowFingerprint builds the dedupe key for a row over cols in order.
func rowFingerprint(row map[string]any, cols []string) string {
	var b strings.Builder
	b.Grow(len(cols) * 16)

	for i, col := range cols {
		if i > 0 {
			b.WriteString(fingerprintSep)
		}
		v, ok := row[col]
		if !ok || v == nil {
			b.WriteString(missingMark)
			continue
		}
		b.WriteString(CellString(v))
	}
	return b.String()
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace, so the
// hot paths can skip TrimSpace allocations for already-clean values.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
