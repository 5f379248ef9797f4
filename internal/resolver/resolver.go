// Package resolver lists the concrete on-disk files matching a filter group
// for one subject, as paths relative to the dataset root.
package resolver

import (
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/bidsfilter"
	"github.com/neurodatascience/cohort-creator/internal/model"
)

// List resolves the relative paths of all files of one datatype matching the
// filter groups, across all sessions of a subject. The result is deduplicated,
// sorted, and uses forward slashes regardless of platform; only files present
// on disk at resolution time are returned. A missing datatype directory for a
// session is expected and skipped. Data files whose extension is not json are
// paired with their JSON sidecar when one exists.
//
// An empty result is a valid outcome the caller distinguishes from matches;
// it is never an error.
func List(
	dataRoot string,
	dt model.DatasetType,
	filters bidsfilter.Group,
	subject string,
	sessions []model.Session,
	datatype string,
	space string,
) []string {
	log := zap.L().With(
		zap.String("subject", subject),
		zap.String("datatype", datatype),
		zap.String("dataset_type", dt.String()),
	)

	seen := map[string]struct{}{}
	files := []string{}

	for _, session := range sessions {
		datatypeDir := filepath.Join(dataRoot, subject, datatype)
		if !session.None() {
			datatypeDir = filepath.Join(dataRoot, subject, string(session), datatype)
		}
		if _, err := os.Stat(datatypeDir); err != nil {
			log.Debug("datatype directory does not exist", zap.String("path", datatypeDir))
			continue
		}

		for label, entry := range filters {
			augmented := bidsfilter.Augment(entry, label, dt, session, space)
			collect(dataRoot, datatypeDir, dt, augmented, seen, &files, log)

			if augmented.Ext != "json" {
				sidecar := augmented
				sidecar.Ext = "json"
				collect(dataRoot, datatypeDir, dt, sidecar, seen, &files, log)
			}
		}
	}

	sort.Strings(files)
	return files
}

// collect appends the root-relative paths of the files matching the entry's
// glob pattern under datatypeDir, skipping paths already seen.
func collect(
	dataRoot, datatypeDir string,
	dt model.DatasetType,
	entry bidsfilter.Entry,
	seen map[string]struct{},
	files *[]string,
	log *zap.Logger,
) {
	pattern := bidsfilter.GlobPattern(dt, entry)
	matches, err := filepath.Glob(filepath.Join(datatypeDir, pattern))
	if err != nil {
		log.Warn("malformed glob pattern", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	for _, match := range matches {
		rel, err := filepath.Rel(dataRoot, match)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		*files = append(*files, rel)
	}
}
