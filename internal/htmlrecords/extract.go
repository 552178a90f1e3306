package htmlrecords

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractOne parses html and applies mappings relative to the document
// root, returning a single JSON-ready map.
//
// Missing selectors are not errors; they simply produce no output field.
func ExtractOne(html string, mappings []Mapping) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return parseSelection(doc.Selection, mappings)
}

// ExtractRecords parses html and extracts one JSON-ready map per container
// matched by recordSelector. Mappings are evaluated relative to each
// container, and the returned slice preserves DOM order.
func ExtractRecords(html, recordSelector string, mappings []Mapping) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return extractRecords(doc, recordSelector, mappings), nil
}

// extractRecords iterates all containers matched by recordSelector. A
// record whose extraction fails (e.g. invalid regex in a mapping) is
// skipped so the remaining records still come through.
func extractRecords(doc *goquery.Document, recordSelector string, mappings []Mapping) []map[string]any {
	var records []map[string]any

	doc.Find(recordSelector).Each(func(_ int, rec *goquery.Selection) {
		obj, err := parseSelection(rec, mappings)
		if err != nil {
			return
		}
		if len(obj) > 0 {
			records = append(records, obj)
		}
	})

	return records
}

// parseSelection applies all mappings relative to root.
//
// Semantics:
//   - With Mapping.All, every selector match is collected into []string;
//     otherwise only the first match is extracted.
//   - Mapping.Match is an optional regex over the extracted value. With
//     capturing groups, group 1 is the output; without, the full match. A
//     non-matching regex omits the field.
//   - Empty extracted values are omitted.
func parseSelection(root *goquery.Selection, mappings []Mapping) (map[string]any, error) {
	output := make(map[string]any)

	for _, mapping := range mappings {
		re, err := compileOptionalRegex(mapping.Match, mapping.Field)
		if err != nil {
			return nil, err
		}

		// extractOne converts a matched node into the extracted string.
		// "" means "no value" for this mapping at this node.
		extractOne := func(sel *goquery.Selection) string {
			switch mapping.Extract {
			case "text":
				return strings.TrimSpace(sel.Text())

			case "attr":
				if mapping.Attr == "" {
					return ""
				}
				if val, ok := sel.Attr(mapping.Attr); ok {
					return strings.TrimSpace(val)
				}
				return ""

			default:
				// Unknown extraction modes produce no value.
				return ""
			}
		}

		if mapping.All {
			var vals []string
			root.Find(mapping.Selector).Each(func(_ int, sel *goquery.Selection) {
				v := extractOne(sel)
				v = applyRegexFilter(v, re)
				if v == "" {
					return
				}
				vals = append(vals, v)
			})
			if len(vals) > 0 {
				output[mapping.Field] = vals
			}
			continue
		}

		sel := root.Find(mapping.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		v := extractOne(sel)
		v = applyRegexFilter(v, re)
		if v == "" {
			continue
		}
		output[mapping.Field] = v
	}

	return output, nil
}

// compileOptionalRegex compiles pattern, or returns (nil, nil) for an empty
// pattern. Errors carry the mapping's field name so a broken mappings.json
// is easy to pin down.
func compileOptionalRegex(pattern, field string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex for field %q: %w", field, err)
	}
	return re, nil
}

// applyRegexFilter applies re to value when set. A nil re passes value
// through; a non-match returns ""; group 1 wins over the full match.
func applyRegexFilter(value string, re *regexp.Regexp) string {
	if value == "" || re == nil {
		return value
	}

	sm := re.FindStringSubmatch(value)
	if len(sm) == 0 {
		return ""
	}
	if len(sm) > 1 {
		return sm[1]
	}
	return sm[0]
}
