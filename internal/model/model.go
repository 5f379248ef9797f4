// Package model holds the shared domain types of the cohort creator.
package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// DatasetType identifies one of the supported dataset variants. The behavioral
// differences between variants (sibling-clone naming, derivative target layout,
// space/desc entity vocabulary) are carried as data so callers never branch on
// raw strings.
type DatasetType struct {
	name       string
	derivative bool
	processed  bool
}

var (
	// Raw is an unprocessed BIDS dataset.
	Raw = DatasetType{name: "raw"}
	// MRIQC is the quality-control derivative. Its file names use the raw
	// entity vocabulary.
	MRIQC = DatasetType{name: "mriqc", derivative: true}
	// FMRIPrep is the preprocessing derivative. Its file names carry the
	// space and desc entities.
	FMRIPrep = DatasetType{name: "fmriprep", derivative: true, processed: true}
)

// supportedDatasetTypes is the closed set accepted by ParseDatasetType.
var supportedDatasetTypes = []DatasetType{Raw, MRIQC, FMRIPrep}

func (dt DatasetType) String() string { return dt.name }

// Derivative reports whether the variant is stored as a "{dataset}-{name}"
// sibling clone and materialized under a derivatives/ folder in the cohort.
func (dt DatasetType) Derivative() bool { return dt.derivative }

// Processed reports whether file names of this variant carry processing-space
// and description entities.
func (dt DatasetType) Processed() bool { return dt.processed }

// ParseDatasetType converts a dataset-type token into its DatasetType.
// Unsupported tokens are a configuration defect and fail fast.
func ParseDatasetType(s string) (DatasetType, error) {
	for _, dt := range supportedDatasetTypes {
		if dt.name == s {
			return dt, nil
		}
	}
	return DatasetType{}, eris.Errorf("model: dataset type %q is not supported (supported: raw, mriqc, fmriprep)", s)
}

// ParseDatasetTypes converts a list of dataset-type tokens, preserving order.
func ParseDatasetTypes(tokens []string) ([]DatasetType, error) {
	out := make([]DatasetType, 0, len(tokens))
	for _, s := range tokens {
		dt, err := ParseDatasetType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}

// Session is a BIDS session label such as "ses-preop". The zero value is the
// "no session" sentinel for subjects whose data is not organized in session
// folders.
type Session string

// NoSession marks a subject without session folders.
const NoSession Session = ""

// None reports whether the session is the "no session" sentinel.
func (s Session) None() bool { return s == "" }

// Participant is one subject of one dataset, with the sessions the caller
// wants data for. Sessions are read-only input supplied by the participant
// listing.
type Participant struct {
	DatasetID string
	SubjectID string
	Sessions  []Session
}

// KnownDatatypes lists the BIDS datatype folder names the cohort creator
// understands, sorted.
func KnownDatatypes() []string {
	dts := []string{
		"anat", "beh", "dwi", "eeg", "fmap", "func", "ieeg",
		"meg", "micr", "motion", "nirs", "perf", "pet",
	}
	sort.Strings(dts)
	return dts
}

// IsKnownDatatype reports whether s is a recognized BIDS datatype folder name.
func IsKnownDatatype(s string) bool {
	for _, dt := range KnownDatatypes() {
		if dt == s {
			return true
		}
	}
	return false
}
