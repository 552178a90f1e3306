package textclean

import (
	"io"
	"strings"
	"testing"
)

func TestStrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain_text_unchanged", in: "beach day, 100%", want: "beach day, 100%"},
		{name: "emoji_removed", in: "sun \U0001F31E and sea \U0001F30A", want: "sun  and sea "},
		{name: "flags_removed", in: "trip \U0001F1E9\U0001F1EA done", want: "trip  done"},
		{name: "zwj_sequence_removed", in: "family \U0001F468‍\U0001F469", want: "family "},
		{name: "variation_selector_removed", in: "star ⭐️!", want: "star !"},
		{name: "dingbat_removed", in: "ok ✅", want: "ok "},
		{name: "controls_removed_keep_tab_newline", in: "a\x00b\tc\nd\x1Fe", want: "ab\tc\nde"},
		{name: "accents_survive", in: "café niño übung", want: "café niño übung"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Strip(tc.in); got != tc.want {
				t.Fatalf("Strip(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewReader_StripsUTF8BOM(t *testing.T) {
	t.Parallel()

	in := "\uFEFF" + `{"a": 1}`
	got, err := io.ReadAll(NewReader(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != `{"a": 1}` {
		t.Fatalf("got %q, want BOM removed", got)
	}
}

func TestNewReader_NoBOMPassthrough(t *testing.T) {
	t.Parallel()

	in := `[1, 2, 3]`
	got, err := io.ReadAll(NewReader(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != in {
		t.Fatalf("got %q, want %q", got, in)
	}
}

func TestNewReader_UTF16LE(t *testing.T) {
	t.Parallel()

	// "[1]" as UTF-16LE with BOM.
	in := string([]byte{0xFF, 0xFE, '[', 0x00, '1', 0x00, ']', 0x00})
	got, err := io.ReadAll(NewReader(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "[1]" {
		t.Fatalf("got %q, want %q", got, "[1]")
	}
}
