package bidsfilter

import (
	"fmt"
	"strings"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// GlobPattern compiles an augmented entry into a filesystem glob pattern.
// Raw and QC-derivative datasets use the raw entity template; preprocessing
// derivatives additionally match the space and desc entities. Runs of
// consecutive wildcards are collapsed so the pattern stays valid when several
// entities resolve to the wildcard at once.
func GlobPattern(dt model.DatasetType, e Entry) string {
	pattern := fmt.Sprintf("*%s*%s*%s", e.Ses, e.Task, e.Run)
	if dt.Processed() {
		pattern = fmt.Sprintf("*%s*%s*%s", pattern, e.Space, e.Desc)
	}
	pattern = fmt.Sprintf("%s*_%s.%s", pattern, e.Suffix, e.Ext)
	for strings.Contains(pattern, "**") {
		pattern = strings.ReplaceAll(pattern, "**", "*")
	}
	return pattern
}
