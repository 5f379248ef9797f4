package cohort

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/bids"
	"github.com/neurodatascience/cohort-creator/internal/listing"
	"github.com/neurodatascience/cohort-creator/internal/model"
	"github.com/neurodatascience/cohort-creator/internal/resolver"
)

// Version is stamped into the cohort's dataset_description.json.
const Version = "0.2.0"

// ConstructCohort copies the fetched files of every participant into the
// study-* layout under the output directory, along with the dataset-level
// top files and the cohort bookkeeping files. Re-running against the same
// output directory skips files already copied.
func (c *Creator) ConstructCohort(ctx context.Context, datasets []listing.DatasetRef, participants []model.Participant) error {
	runID := c.startRun(ctx, "copy")
	defer c.finishRun(ctx, runID)

	zap.L().Info("constructing cohort")

	if err := ensureDir(c.opts.OutputDir); err != nil {
		return eris.Wrapf(err, "cohort: create output dir %s", c.opts.OutputDir)
	}
	if err := bids.WriteCohortDescription(c.opts.OutputDir, Version); err != nil {
		return err
	}
	readme := filepath.Join(c.opts.OutputDir, "README.md")
	if err := os.WriteFile(readme, []byte("# README\n\n"), 0o644); err != nil {
		return eris.Wrapf(err, "cohort: write %s", readme)
	}

	names := listing.DatasetNames(datasets, participants)

	for _, dataset := range names {
		log := zap.L().With(zap.String("dataset", dataset))

		subjects := c.participantIDs(dataset, participants)
		if len(subjects) == 0 {
			log.Warn("no participants in dataset")
			continue
		}
		log.Info("creating cohort", zap.Strings("participants", subjects))

		record, ok := c.catalog.Lookup(dataset)
		if !ok {
			log.Warn("dataset not found in list of known datasets")
			continue
		}

		for _, dt := range c.opts.DatasetTypes {
			if record.URI(dt) == "" {
				log.Debug("no clone listed for dataset type",
					zap.String("dataset_type", dt.String()))
				c.recordAll(ctx, runID, dataset, dt, subjects, model.UnitSkippedNoURI, "no clone listed")
				continue
			}

			srcPath := bids.VariantPath(bids.SourceData(c.opts.OutputDir), dataset, dt)
			targetPath := bids.TargetPath(c.opts.OutputDir, dt, dataset, srcPath)
			if err := ensureDir(targetPath); err != nil {
				return eris.Wrapf(err, "cohort: create target dir %s", targetPath)
			}

			copyTopFiles(srcPath, targetPath, c.opts.Datatypes)
			if len(participants) > 0 {
				filterParticipantsTSV(targetPath, subjects)
			}

			for _, subject := range subjects {
				state, detail := c.copySubject(srcPath, targetPath, dt, dataset, subject, participants)
				c.record(ctx, runID, dataset, dt, subject, state, detail)
			}
		}
	}

	return writeStudyListing(c.opts.OutputDir, names)
}

// copySubject copies every matching file of one subject from the source
// clone into the cohort and reports the terminal unit state. A file that
// vanished between listing and copy is logged and skipped.
func (c *Creator) copySubject(
	srcPath, targetPath string,
	dt model.DatasetType,
	dataset, subject string,
	participants []model.Participant,
) (model.UnitState, string) {
	log := zap.L().With(
		zap.String("dataset", dataset),
		zap.String("dataset_type", dt.String()),
		zap.String("subject", subject),
	)

	if !bids.SubjectInDataset(subject, srcPath) {
		log.Debug("participant not in dataset")
		return model.UnitSkippedNoParticipant, "no participant directory"
	}

	sessions := c.sessionsFor(srcPath, dataset, subject, participants)

	copied := false
	detail := ""
	for _, datatype := range c.opts.Datatypes {
		filters := applyTask(c.filters.Select(dt, datatype), c.opts.Task)
		files := resolver.List(srcPath, dt, filters, subject, sessions, datatype, c.opts.Space)
		if len(files) == 0 {
			log.Warn("no files found", zap.String("datatype", datatype))
			continue
		}

		log.Debug("copying files", zap.Strings("files", files))
		for _, file := range files {
			if err := copyFile(srcPath, targetPath, file); err != nil {
				log.Error("could not copy file", zap.String("file", file), zap.Error(err))
				detail = err.Error()
				continue
			}
		}
		copied = true
	}

	if !copied {
		return model.UnitWarnedEmpty, "no files matched any datatype"
	}
	if detail != "" {
		return model.UnitFailed, detail
	}
	return model.UnitCopied, ""
}

// copyFile copies one dataset-relative file, dereferencing annex symlinks. A
// target that already exists is left alone so re-runs are idempotent.
func copyFile(srcRoot, targetRoot, relPath string) error {
	rel := filepath.FromSlash(relPath)
	src := filepath.Join(srcRoot, rel)
	dst := filepath.Join(targetRoot, rel)

	if _, err := os.Stat(dst); err == nil {
		zap.L().Debug("file already present", zap.String("file", relPath))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "cohort: create parent of %s", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "cohort: open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "cohort: create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "cohort: copy %s", relPath)
	}
	return eris.Wrapf(out.Close(), "cohort: close %s", dst)
}

// topFilePatterns returns the glob patterns of the dataset-level files copied
// alongside subject data.
func topFilePatterns(datatypes []string) []string {
	patterns := []string{"dataset_description.json", "participants.*", "README*"}
	for _, datatype := range datatypes {
		switch datatype {
		case "func":
			patterns = append(patterns,
				"*task-*_events.tsv", "*task-*_events.json", "*task-*_bold.json")
		case "anat":
			patterns = append(patterns, "*T1w.json")
		}
	}
	return patterns
}

// copyTopFiles copies the dataset-level metadata files from the clone root
// into the cohort target. Absence of any of them is expected.
func copyTopFiles(srcPath, targetPath string, datatypes []string) {
	for _, pattern := range topFilePatterns(datatypes) {
		matches, err := filepath.Glob(filepath.Join(srcPath, pattern))
		if err != nil {
			zap.L().Warn("bad top-file pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, match := range matches {
			if err := copyFile(srcPath, targetPath, filepath.Base(match)); err != nil {
				zap.L().Error("could not copy top file",
					zap.String("file", match), zap.Error(err))
			}
		}
	}
}
