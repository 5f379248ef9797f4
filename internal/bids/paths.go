// Package bids computes the on-disk locations of dataset variants and of
// their targets inside a constructed cohort, and reads the BIDS description
// metadata those computations depend on.
package bids

import (
	"fmt"
	"path/filepath"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// SourceData returns the directory the source dataset clones live under.
func SourceData(outputDir string) string {
	return filepath.Join(outputDir, "sourcedata")
}

// DatasetPath returns the root of a dataset variant under root. Derivative
// clones are stored as siblings named "{dataset}-{derivative}", mirroring how
// the version-control client lays out sibling clones; an empty derivative
// addresses the raw dataset itself.
func DatasetPath(root, dataset, derivative string) string {
	if derivative == "" {
		return filepath.Join(root, dataset)
	}
	return filepath.Join(root, fmt.Sprintf("%s-%s", dataset, derivative))
}

// VariantPath returns the root of the clone holding a dataset variant: the
// dataset itself for raw, the "{dataset}-{type}" sibling for derivatives.
func VariantPath(root, dataset string, dt model.DatasetType) string {
	if !dt.Derivative() {
		return DatasetPath(root, dataset, "")
	}
	return DatasetPath(root, dataset, dt.String())
}

// StudyDir returns the name of a dataset's study folder inside the cohort.
func StudyDir(dataset string) string {
	return "study-" + dataset
}

// TargetPath returns the destination root for a (dataset, dataset type) pair
// inside the cohort. Raw data goes to the study folder itself; derivatives go
// under derivatives/, with the folder name qualified by the pipeline version
// when srcPath exists and its description exposes one. A missing or
// unparsable version silently falls back to the unqualified name.
func TargetPath(outputDir string, dt model.DatasetType, dataset, srcPath string) string {
	study := StudyDir(dataset)
	if !dt.Derivative() {
		return filepath.Join(outputDir, study)
	}
	folder := dt.String()
	if srcPath != "" {
		if version := PipelineVersion(srcPath); version != "" {
			folder = fmt.Sprintf("%s-%s", dt, version)
		}
	}
	return filepath.Join(outputDir, study, "derivatives", folder)
}
