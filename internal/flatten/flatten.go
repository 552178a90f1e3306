// Package flatten turns one parsed JSON document into flat records.
//
// Export archives store repeating data either as a bare array or wrapped in a
// named envelope object. RecordList picks the repeating part; Flatten converts
// each element into a flat key/value record with nested paths joined by a
// separator.
package flatten

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Record is one flattened row: fully joined key paths mapped to leaf values.
// Values are decoded JSON scalars (nil, bool, json.Number, string) or the
// ", "-joined rendering of a scalar list. A Record never contains a nested
// container.
type Record map[string]any

// Sep is the default path separator between nested key segments.
const Sep = "_"

// listJoin is the delimiter used when a scalar list collapses into one value.
// Link-table extraction downstream splits on the same delimiter.
const listJoin = ", "

// containerKeys is the ordered envelope probe list. The first key present
// whose value is an array is taken as the record list.
var containerKeys = []string{
	"list",
	"messages",
	"media",
	"connections",
	"string_list_data",
	"profile_changes",
	"followers",
	"following",
	"ads",
	"ads_information",
	"items",
}

// Decode reads exactly one JSON document from r.
//
// Numbers are preserved as json.Number so integer literals survive untouched
// into the output. Trailing non-whitespace content after the document is an
// error: an export file holds a single document, anything else is malformed.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json: trailing data after document")
	}
	return doc, nil
}

// RecordList returns the elements of doc that become table rows.
//
// Behavior:
//   - Array root: the array itself is the record list.
//   - Object root: the first containerKeys entry present whose value is an
//     array wins (envelope pattern). Keys holding non-array values are
//     skipped, not selected.
//   - Anything else (object without a recognized envelope, or a bare
//     scalar): a one-element list holding the value.
//
// RecordList never fails for well-formed JSON and never inspects nested
// structure; Flatten handles the inside of each element.
func RecordList(doc any) []any {
	switch v := doc.(type) {
	case []any:
		return v
	case map[string]any:
		for _, k := range containerKeys {
			if arr, ok := v[k].([]any); ok {
				return arr
			}
		}
		return []any{v}
	default:
		return []any{doc}
	}
}

// Flatten converts one JSON value into a flat Record.
//
// Behavior:
//   - Objects recurse with each key appended to the prefix via sep. Keys are
//     visited in sorted order so that path collisions resolve the same way on
//     every run (last write wins over the sorted order; collisions are a
//     documented limitation, not an error).
//   - Arrays whose elements are all objects are treated as indexed
//     sub-objects: the element index becomes a path segment.
//   - Any other array collapses into a single ", "-joined string of its
//     stringified elements.
//   - Scalars (including null) land directly under the accumulated key.
//   - Empty objects and arrays contribute no keys.
//
// An empty sep defaults to Sep. A non-empty prefix is joined to the first
// path segment with sep.
func Flatten(value any, prefix, sep string) Record {
	if sep == "" {
		sep = Sep
	}
	name := prefix
	if name != "" && !strings.HasSuffix(name, sep) {
		name += sep
	}

	out := make(Record)
	flattenValue(value, name, sep, out)
	return out
}

// flattenValue descends v, writing leaves into out. name carries a trailing
// sep whenever it is non-empty.
func flattenValue(v any, name, sep string, out Record) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(t[k], name+k+sep, sep, out)
		}

	case []any:
		if allObjects(t) {
			for i, elem := range t {
				flattenValue(elem, name+strconv.Itoa(i)+sep, sep, out)
			}
			return
		}
		out[strings.TrimSuffix(name, sep)] = joinScalars(t)

	default:
		out[strings.TrimSuffix(name, sep)] = v
	}
}

// allObjects reports whether every element of arr is a JSON object. An empty
// array vacuously qualifies, which routes it through the indexed branch and
// drops it (no elements, no keys).
func allObjects(arr []any) bool {
	for _, e := range arr {
		if _, ok := e.(map[string]any); !ok {
			return false
		}
	}
	return true
}

func joinScalars(arr []any) string {
	parts := make([]string, len(arr))
	for i, e := range arr {
		parts[i] = scalarString(e)
	}
	return strings.Join(parts, listJoin)
}

// scalarString renders one collapsed-list element. Nested containers inside a
// mixed array are rendered as compact JSON.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
