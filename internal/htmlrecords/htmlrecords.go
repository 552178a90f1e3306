// Package htmlrecords extracts JSON-ready records from HTML pages using
// CSS-selector mapping rules.
//
// Older export archives ship some sections as rendered HTML instead of
// JSON. A mapping file describes how to lift those pages into the same
// record shape the JSON conversion pipeline consumes: either one object per
// document, or one object per repeated container element (record mode).
package htmlrecords

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mapping is one extraction rule.
type Mapping struct {
	Selector string `json:"selector"`        // evaluated relative to doc or record, depending on mode
	Extract  string `json:"extract"`         // "text" or "attr"
	Attr     string `json:"attr,omitempty"`  // used when Extract == "attr"
	Field    string `json:"field"`           // key name in the output object
	Match    string `json:"match,omitempty"` // optional regex filter over the extracted value
	All      bool   `json:"all,omitempty"`   // collect all matches into []string
}

// MappingFile describes a mappings.json file.
type MappingFile struct {
	RecordSelector string    `json:"record_selector,omitempty"` // if set, record mode
	Mappings       []Mapping `json:"mappings"`
}

// LoadMappingFile loads and validates a JSON mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}

	var mf MappingFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return nil, fmt.Errorf("parse mappings json: %w", err)
	}

	if len(mf.Mappings) == 0 {
		return nil, fmt.Errorf("mapping file %s has no mappings", path)
	}
	return &mf, nil
}
