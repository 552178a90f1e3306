package flatten

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// mustDecode parses a JSON literal the same way the pipeline does (UseNumber),
// failing the test on malformed fixtures.
func mustDecode(t *testing.T, src string) any {
	t.Helper()
	doc, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode(%q): %v", src, err)
	}
	return doc
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("numbers_keep_literal_form", func(t *testing.T) {
		t.Parallel()
		doc := mustDecode(t, `{"likes_count": 12}`)
		obj, ok := doc.(map[string]any)
		if !ok {
			t.Fatalf("doc type=%T, want map", doc)
		}
		n, ok := obj["likes_count"].(json.Number)
		if !ok {
			t.Fatalf("likes_count type=%T, want json.Number", obj["likes_count"])
		}
		if n.String() != "12" {
			t.Fatalf("likes_count=%q, want %q", n.String(), "12")
		}
	})

	t.Run("malformed_errors", func(t *testing.T) {
		t.Parallel()
		if _, err := Decode(strings.NewReader(`{"a":`)); err == nil {
			t.Fatalf("Decode(truncated)=nil error, want error")
		}
	})

	t.Run("trailing_data_errors", func(t *testing.T) {
		t.Parallel()
		if _, err := Decode(strings.NewReader(`[1] [2]`)); err == nil {
			t.Fatalf("Decode(two documents)=nil error, want error")
		}
	})

	t.Run("trailing_whitespace_ok", func(t *testing.T) {
		t.Parallel()
		if _, err := Decode(strings.NewReader("[1]\n\t ")); err != nil {
			t.Fatalf("Decode(trailing whitespace)=%v, want nil", err)
		}
	})
}

// TestRecordList covers the three root shapes plus the envelope priority
// order. Sibling keys next to the envelope must not influence selection.
func TestRecordList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want int // record count
	}{
		{name: "root_array", src: `[{"a":1},{"a":2},{"a":3}]`, want: 3},
		{name: "root_empty_array", src: `[]`, want: 0},
		{name: "list_envelope", src: `{"list":[{"a":1},{"a":2}]}`, want: 2},
		{name: "media_envelope_with_siblings", src: `{"version":2,"media":[{"id":1}],"owner":"x"}`, want: 1},
		{name: "envelope_key_not_array_falls_through", src: `{"media":"nope"}`, want: 1},
		{name: "object_without_envelope", src: `{"title":"profile","bio":"hi"}`, want: 1},
		{name: "bare_scalar", src: `"hello"`, want: 1},
		{name: "bare_null", src: `null`, want: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := RecordList(mustDecode(t, tc.src))
			if len(got) != tc.want {
				t.Fatalf("RecordList len=%d, want %d (records=%#v)", len(got), tc.want, got)
			}
		})
	}

	t.Run("array_elements_pass_through_unchanged", func(t *testing.T) {
		t.Parallel()
		doc := mustDecode(t, `{"list":[{"a":1},{"b":2}]}`)
		got := RecordList(doc)
		inner := doc.(map[string]any)["list"].([]any)
		if !reflect.DeepEqual(got, inner) {
			t.Fatalf("RecordList=%#v, want inner array %#v", got, inner)
		}
	})

	t.Run("priority_order_first_key_wins", func(t *testing.T) {
		t.Parallel()
		doc := mustDecode(t, `{"items":[{"i":1}],"list":[{"l":1},{"l":2}]}`)
		got := RecordList(doc)
		if len(got) != 2 {
			t.Fatalf("RecordList len=%d, want 2 (list outranks items)", len(got))
		}
		first := got[0].(map[string]any)
		if _, ok := first["l"]; !ok {
			t.Fatalf("selected wrong envelope: first record=%#v", first)
		}
	})

	t.Run("unenveloped_object_is_sole_record", func(t *testing.T) {
		t.Parallel()
		doc := mustDecode(t, `{"title":"profile"}`)
		got := RecordList(doc)
		if len(got) != 1 || !reflect.DeepEqual(got[0], doc) {
			t.Fatalf("RecordList=%#v, want single element holding the object", got)
		}
	})
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		prefix string
		want   Record
	}{
		{
			// Flattening a record with only scalar values must return the
			// same pairs unchanged.
			name: "already_flat_is_idempotent",
			src:  `{"a":1,"b":"x","c":true,"d":null}`,
			want: Record{"a": json.Number("1"), "b": "x", "c": true, "d": nil},
		},
		{
			name: "nested_objects_join_with_sep",
			src:  `{"a":{"b":1,"c":{"d":"x"}}}`,
			want: Record{"a_b": json.Number("1"), "a_c_d": "x"},
		},
		{
			name: "array_of_objects_indexes_as_segment",
			src:  `{"tags":[{"n":"sun"},{"n":"beach"}]}`,
			want: Record{"tags_0_n": "sun", "tags_1_n": "beach"},
		},
		{
			name: "scalar_list_collapses_joined",
			src:  `{"k":[1,"two",true,null]}`,
			want: Record{"k": "1, two, true, "},
		},
		{
			name: "mixed_array_collapses_with_json_containers",
			src:  `{"k":[1,{"a":2}]}`,
			want: Record{"k": `1, {"a":2}`},
		},
		{
			name: "empty_containers_dropped",
			src:  `{"a":{},"b":[],"c":1}`,
			want: Record{"c": json.Number("1")},
		},
		{
			name:   "prefix_joins_first_segment",
			src:    `{"k":"v"}`,
			prefix: "rec",
			want:   Record{"rec_k": "v"},
		},
		{
			name: "bare_scalar_lands_under_empty_key",
			src:  `"hello"`,
			want: Record{"": "hello"},
		},
		{
			// Two branches producing the same flat path: the sorted visit
			// order makes the survivor deterministic (last write wins).
			name: "key_collision_last_write_wins",
			src:  `{"a":{"b":1},"a_b":2}`,
			want: Record{"a_b": json.Number("2")},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Flatten(mustDecode(t, tc.src), tc.prefix, "")
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Flatten got=%#v, want=%#v", got, tc.want)
			}
		})
	}
}

// TestFlatten_NoNestedContainers checks the record invariant directly on a
// deep document: every value must be a scalar or a string after flattening.
func TestFlatten_NoNestedContainers(t *testing.T) {
	t.Parallel()

	src := `{
		"media": {"uri": "a.jpg", "meta": {"w": 100, "h": 200}},
		"comments": [{"user": {"name": "x"}, "text": "hi"}, {"text": "yo"}],
		"tags": ["a", "b"],
		"flags": []
	}`

	got := Flatten(mustDecode(t, src), "", "")
	for k, v := range got {
		switch v.(type) {
		case nil, bool, string, json.Number:
		default:
			t.Fatalf("key %q holds non-scalar %T after flattening", k, v)
		}
	}
	if _, ok := got["comments_0_user_name"]; !ok {
		t.Fatalf("missing expected deep path, got keys=%v", recordKeys(got))
	}
}

func recordKeys(r Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func BenchmarkFlatten(b *testing.B) {
	doc, err := Decode(strings.NewReader(`{
		"id": 123,
		"caption": "hello world",
		"media": [{"uri": "a.jpg", "meta": {"w": 100, "h": 200}},
		          {"uri": "b.jpg", "meta": {"w": 300, "h": 400}}],
		"tags": ["sun", "beach", "sea"]
	}`))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Flatten(doc, "", "")
	}
}
