// Package textclean removes decorative symbols from export text and smooths
// byte-order marks on input files.
package textclean

import (
	"io"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// symbolRanges covers the emoji and pictograph blocks social exports embed
// in captions and usernames, the joiner/keycap runes they leave behind, and
// C0/C1 controls except tab, LF and CR.
var symbolRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0000, Hi: 0x0008, Stride: 1},
		{Lo: 0x000B, Hi: 0x000C, Stride: 1},
		{Lo: 0x000E, Hi: 0x001F, Stride: 1},
		{Lo: 0x007F, Hi: 0x009F, Stride: 1},
		{Lo: 0x200D, Hi: 0x200D, Stride: 1}, // zero-width joiner
		{Lo: 0x20E3, Hi: 0x20E3, Stride: 1}, // combining keycap
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1}, // arrows
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1}, // misc symbols and arrows
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1}, // emoji, pictographs, flags
	},
	LatinOffset: 4,
}

var scrubber = runes.Remove(runes.In(symbolRanges))

// Strip returns s without emoji, symbol and control runes. Tab, LF and CR
// survive. Invalid UTF-8 leaves s unchanged rather than mangled.
func Strip(s string) string {
	out, _, err := transform.String(scrubber, s)
	if err != nil {
		return s
	}
	return out
}

// NewReader wraps r so a leading byte-order mark is consumed (and UTF-16
// content transcoded to UTF-8). Exports written on Windows tend to carry a
// BOM that would otherwise corrupt the first JSON token.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, xunicode.BOMOverride(transform.Nop))
}
