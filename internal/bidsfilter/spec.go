// Package bidsfilter resolves the declarative filter specification that maps
// named file groups to the BIDS entities identifying matching files, and turns
// augmented filters into filesystem glob patterns.
package bidsfilter

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

//go:embed data/bids_filter.json
var defaultFilterJSON []byte

// Entry identifies the files of one named group through BIDS entities.
// Datatype, Suffix and Ext are required; the remaining entities default to the
// wildcard at augmentation time. Ses is only ever set by Augment.
type Entry struct {
	Datatype string `json:"datatype"`
	Suffix   string `json:"suffix"`
	Ext      string `json:"ext"`
	Task     string `json:"task,omitempty"`
	Run      string `json:"run,omitempty"`
	Space    string `json:"space,omitempty"`
	Desc     string `json:"desc,omitempty"`
	Ses      string `json:"-"`
}

// Group maps group labels (for example "bold") to their filter entries.
type Group map[string]Entry

// Spec maps dataset-type names to their filter groups. A Spec is loaded once
// per invocation and never mutated afterwards.
type Spec map[string]Group

// requiredKeys must be present in every filter entry.
var requiredKeys = []string{"datatype", "suffix", "ext"}

// Load reads and validates a filter specification. An empty path loads the
// built-in default specification.
func Load(path string) (Spec, error) {
	data := defaultFilterJSON
	source := "builtin"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "bidsfilter: read filter file %s", path)
		}
		source = path
	}
	return parse(data, source)
}

func parse(data []byte, source string) (Spec, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "bidsfilter: parse filter file %s", source)
	}

	spec := make(Spec, len(raw))
	for dtName, groups := range raw {
		if _, err := model.ParseDatasetType(dtName); err != nil {
			return nil, eris.Wrapf(err, "bidsfilter: filter file %s", source)
		}

		group := make(Group, len(groups))
		for label, rawEntry := range groups {
			var object map[string]any
			if err := json.Unmarshal(rawEntry, &object); err != nil {
				return nil, eris.Errorf(
					"bidsfilter: value of %s[%s] in filter file %s must be a JSON object",
					dtName, label, source)
			}
			for key, value := range object {
				if _, ok := value.(string); !ok {
					return nil, eris.Errorf(
						"bidsfilter: entity %q of %s[%s] in filter file %s must be a string",
						key, dtName, label, source)
				}
			}
			for _, key := range requiredKeys {
				if _, ok := object[key]; !ok {
					return nil, eris.Errorf(
						"bidsfilter: key %q not found in %s[%s] in filter file %s",
						key, dtName, label, source)
				}
			}

			var entry Entry
			if err := json.Unmarshal(rawEntry, &entry); err != nil {
				return nil, eris.Wrapf(err, "bidsfilter: decode %s[%s] in filter file %s",
					dtName, label, source)
			}
			group[label] = entry
		}
		spec[dtName] = group
	}
	return spec, nil
}

// Select returns the groups of the given dataset type whose datatype matches
// the requested BIDS datatype, preserving the original labels. No match yields
// an empty group, not an error.
func (s Spec) Select(dt model.DatasetType, datatype string) Group {
	selected := Group{}
	for label, entry := range s[dt.String()] {
		if entry.Datatype == datatype {
			selected[label] = entry
		}
	}
	return selected
}
