package bids

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DescriptionFile is the name of the BIDS dataset metadata file.
const DescriptionFile = "dataset_description.json"

// GeneratedBy describes the pipeline that produced a derivative dataset.
type GeneratedBy struct {
	Name    string `json:"Name,omitempty"`
	Version string `json:"Version,omitempty"`
	CodeURL string `json:"CodeURL,omitempty"`
}

// Description is the subset of dataset_description.json the cohort creator
// reads and writes.
type Description struct {
	Name              string        `json:"Name"`
	BIDSVersion       string        `json:"BIDSVersion"`
	License           string        `json:"License,omitempty"`
	DatasetType       string        `json:"DatasetType,omitempty"`
	Authors           []string      `json:"Authors,omitempty"`
	ReferencesAndLinks []string     `json:"ReferencesAndLinks,omitempty"`
	DatasetDOI        string        `json:"DatasetDOI,omitempty"`
	GeneratedBy       []GeneratedBy `json:"GeneratedBy,omitempty"`
	HowToAcknowledge  string        `json:"HowToAcknowledge,omitempty"`
}

// ReadDescription loads the description file of the dataset rooted at dir.
func ReadDescription(dir string) (*Description, error) {
	data, err := os.ReadFile(filepath.Join(dir, DescriptionFile))
	if err != nil {
		return nil, eris.Wrapf(err, "bids: read description in %s", dir)
	}
	var desc Description
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, eris.Wrapf(err, "bids: parse description in %s", dir)
	}
	return &desc, nil
}

// PipelineVersion returns the GeneratedBy[0].Version of the dataset rooted at
// dir, or "" when the description file, the GeneratedBy array, or the version
// field is absent. It never fails: absence means the derivative folder name
// stays unqualified.
func PipelineVersion(dir string) string {
	desc, err := ReadDescription(dir)
	if err != nil || len(desc.GeneratedBy) == 0 {
		return ""
	}
	return desc.GeneratedBy[0].Version
}

// PipelineName returns the GeneratedBy[0].Name of the dataset rooted at dir,
// or "" when it cannot be determined.
func PipelineName(dir string) string {
	desc, err := ReadDescription(dir)
	if err != nil || len(desc.GeneratedBy) == 0 {
		return ""
	}
	return desc.GeneratedBy[0].Name
}

// DisplayName returns the canonical display name of the pipeline that produced
// the derivative dataset at dir, falling back to the folder-name prefix when
// the dataset does not exist on disk.
func DisplayName(dir string) string {
	name := PipelineName(dir)
	if name == "" {
		if _, err := os.Stat(dir); err == nil {
			name = "UNKNOWN"
		} else {
			name = strings.SplitN(strings.ToLower(filepath.Base(dir)), "-", 2)[0]
		}
	}
	switch name {
	case "fmriprep":
		return "fMRIPrep"
	case "mriqc":
		return "MRIQC"
	}
	return name
}

// DisplayVersion returns the pipeline version of the derivative dataset at
// dir, with the historical default versions as fallback when the dataset does
// not exist on disk.
func DisplayVersion(dir string) string {
	if _, err := os.Stat(dir); err == nil {
		if version := PipelineVersion(dir); version != "" {
			return version
		}
		return "UNKNOWN"
	}
	switch strings.SplitN(strings.ToLower(filepath.Base(dir)), "-", 2)[0] {
	case "fmriprep":
		return "21.0.1"
	case "mriqc":
		return "0.16.1"
	}
	return "UNKNOWN"
}

// WriteCohortDescription writes the cohort-level dataset_description.json.
func WriteCohortDescription(outputDir, version string) error {
	desc := Description{
		Name:        "cohort",
		BIDSVersion: "1.8.0",
		DatasetType: "derivative",
		GeneratedBy: []GeneratedBy{{
			Name:    "cohort_creator",
			Version: version,
			CodeURL: "https://github.com/neurodatascience/cohort_creator.git",
		}},
		HowToAcknowledge: "Please refer to our repository: https://github.com/neurodatascience/cohort_creator.git.",
	}
	data, err := json.MarshalIndent(desc, "", "    ")
	if err != nil {
		return eris.Wrap(err, "bids: marshal cohort description")
	}
	path := filepath.Join(outputDir, DescriptionFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "bids: write %s", path)
	}
	return nil
}
