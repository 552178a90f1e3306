package tabular

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Column-name keywords routing type coercion. Matching is a case-insensitive
// substring test on the normalized column name.
var (
	dateKeywords   = []string{"date", "time", "timestamp"}
	metricKeywords = []string{"count", "likes", "comments", "engagement", "views", "followers", "following"}
)

func isDateColumn(name string) bool {
	return containsAny(strings.ToLower(name), dateKeywords)
}

func isMetricColumn(name string) bool {
	return containsAny(strings.ToLower(name), metricKeywords)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Accepted textual layouts, date-only and with time component. Epoch integers
// are handled separately: exports store "timestamp": 1623840461.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

var tsLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"02.01.2006 15:04:05",
}

type parsedTime struct {
	t  time.Time
	ok bool
}

// parseCache memoizes textual timestamp parses; export tables repeat the same
// handful of literals across rows. lru.New only fails for a non-positive
// size.
var parseCache, _ = lru.New[string, parsedTime](4096)

// coerceTimestamp parses v as a point in time, best effort. The bool result
// is false for anything unparseable; callers substitute the missing marker.
func coerceTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true

	case json.Number:
		if n, err := t.Int64(); err == nil {
			return epochTime(n)
		}
		return time.Time{}, false

	case string:
		s := t
		if hasEdgeSpace(s) {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			return time.Time{}, false
		}
		if p, ok := parseCache.Get(s); ok {
			return p.t, p.ok
		}
		parsed, ok := parseTimeString(s)
		parseCache.Add(s, parsedTime{t: parsed, ok: ok})
		return parsed, ok

	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	for _, lay := range tsLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t.UTC(), true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochTime(n)
	}
	return time.Time{}, false
}

// epochTime interprets n as Unix seconds, or milliseconds when the magnitude
// is that of a millisecond clock. Negative epochs predate every export
// format and are rejected.
func epochTime(n int64) (time.Time, bool) {
	switch {
	case n < 0:
		return time.Time{}, false
	case n >= 1e12:
		return time.UnixMilli(n).UTC(), true
	default:
		return time.Unix(n, 0).UTC(), true
	}
}

// coerceMetric converts v to an integer count. Everything unparseable
// (including the empty string) becomes 0: a usable default beats a
// discarded row.
func coerceMetric(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case float64:
		return int64(t)
	case string:
		s := t
		if hasEdgeSpace(s) {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			return 0
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return 0
	default:
		return 0
	}
}

// coerceDates rewrites every date column's values to time.Time (or "" when
// unparseable) and returns the date column names in column order for the
// feature step.
func coerceDates(t *Table) []string {
	var dateCols []string
	for _, col := range t.Columns {
		if !isDateColumn(col) {
			continue
		}
		dateCols = append(dateCols, col)
		for _, row := range t.Rows {
			parsed, ok := coerceTimestamp(row[col])
			if !ok {
				row[col] = ""
				continue
			}
			row[col] = parsed
		}
	}
	return dateCols
}

// coerceMetrics rewrites every metric column's values to int64. Columns that
// already went through date coercion keep their timestamps: a name matching
// both keyword families is a date first.
func coerceMetrics(t *Table, dateCols []string) {
	skip := make(map[string]bool, len(dateCols))
	for _, c := range dateCols {
		skip[c] = true
	}

	for _, col := range t.Columns {
		if skip[col] || !isMetricColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceMetric(row[col])
		}
	}
}

// dateFeatureSuffixes, in the order the companion columns are appended.
var dateFeatureSuffixes = []string{"_year", "_month", "_day", "_weekday", "_hour"}

// addDateFeatures appends year/month/day/weekday/hour companions for every
// date column. Weekday counts Monday as 0 through Sunday as 6, matching the
// historical artifacts. Rows holding the missing marker get "" in every
// companion.
func addDateFeatures(t *Table, dateCols []string) {
	for _, col := range dateCols {
		for _, row := range t.Rows {
			ts, ok := row[col].(time.Time)
			if !ok {
				for _, suf := range dateFeatureSuffixes {
					row[col+suf] = ""
				}
				continue
			}
			row[col+"_year"] = int64(ts.Year())
			row[col+"_month"] = int64(ts.Month())
			row[col+"_day"] = int64(ts.Day())
			row[col+"_weekday"] = int64((int(ts.Weekday()) + 6) % 7)
			row[col+"_hour"] = int64(ts.Hour())
		}
		for _, suf := range dateFeatureSuffixes {
			t.Columns = append(t.Columns, col+suf)
		}
	}
}

// mediaTypeLabels maps the export's coded media types to readable labels.
// Unknown codes pass through unchanged.
var mediaTypeLabels = map[int64]string{
	1: "photo",
	2: "video",
	8: "carousel",
}

// remapMediaType replaces integral media_type codes with labels. Only
// numeric values are remapped; a string "1" is already user data and passes
// through.
func remapMediaType(t *Table) {
	const col = "media_type"
	if !t.HasColumn(col) {
		return
	}

	for _, row := range t.Rows {
		n, ok := integralValue(row[col])
		if !ok {
			continue
		}
		if label, known := mediaTypeLabels[n]; known {
			row[col] = label
		}
	}
}

// integralValue extracts an exact integer from numeric cell values; floats
// only qualify when they carry no fractional part.
func integralValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
		return 0, false
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
		return 0, false
	default:
		return 0, false
	}
}
