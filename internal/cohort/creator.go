// Package cohort drives the install, get, and copy phases that assemble a
// BIDS cohort from OpenNeuro dataset clones.
package cohort

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/bids"
	"github.com/neurodatascience/cohort-creator/internal/bidsfilter"
	"github.com/neurodatascience/cohort-creator/internal/catalog"
	"github.com/neurodatascience/cohort-creator/internal/listing"
	"github.com/neurodatascience/cohort-creator/internal/model"
	"github.com/neurodatascience/cohort-creator/internal/resolver"
	"github.com/neurodatascience/cohort-creator/internal/store"
)

// Fetcher installs dataset clones and fetches annexed file content.
// datalad.Client is the production implementation.
type Fetcher interface {
	Install(ctx context.Context, uri, target string) error
	Get(ctx context.Context, datasetPath string, paths []string) error
}

// Options selects what a run installs, fetches, and copies.
type Options struct {
	OutputDir    string
	DatasetTypes []model.DatasetType
	Datatypes    []string
	Task         string
	Space        string
}

// Creator assembles cohorts. All collaborators are injected; the catalog is
// read-only and the journal may be nil when run tracking is disabled.
type Creator struct {
	catalog *catalog.Catalog
	fetcher Fetcher
	journal store.Store
	filters bidsfilter.Spec
	opts    Options
}

func New(cat *catalog.Catalog, fetcher Fetcher, journal store.Store, filters bidsfilter.Spec, opts Options) *Creator {
	return &Creator{
		catalog: cat,
		fetcher: fetcher,
		journal: journal,
		filters: filters,
		opts:    opts,
	}
}

// InstallDatasets installs the requested variants of each dataset under
// sourcedata/. Unknown datasets and absent variants are skipped with a log
// line; an install failure does not abort the remaining datasets.
func (c *Creator) InstallDatasets(ctx context.Context, datasets []string) error {
	runID := c.startRun(ctx, "install")
	defer c.finishRun(ctx, runID)

	for _, dataset := range datasets {
		log := zap.L().With(zap.String("dataset", dataset))

		record, ok := c.catalog.Lookup(dataset)
		if !ok {
			log.Warn("dataset not found in list of known datasets")
			continue
		}

		for _, dt := range c.opts.DatasetTypes {
			uri := record.URI(dt)
			if uri == "" {
				log.Debug("no clone listed for dataset type",
					zap.String("dataset_type", dt.String()))
				continue
			}

			target := bids.VariantPath(bids.SourceData(c.opts.OutputDir), dataset, dt)
			if err := c.fetcher.Install(ctx, uri, target); err != nil {
				log.Error("install failed",
					zap.String("dataset_type", dt.String()),
					zap.Error(err))
			}
		}
	}
	return nil
}

// GetData fetches the annexed content of every file the resolver matches for
// the requested participants, per dataset and dataset type. All absence
// conditions and partial fetch failures are non-fatal.
func (c *Creator) GetData(ctx context.Context, datasets []listing.DatasetRef, participants []model.Participant) error {
	runID := c.startRun(ctx, "get")
	defer c.finishRun(ctx, runID)

	zap.L().Info("getting data")

	for _, dataset := range listing.DatasetNames(datasets, participants) {
		log := zap.L().With(zap.String("dataset", dataset))

		subjects := c.participantIDs(dataset, participants)
		if len(subjects) == 0 {
			log.Warn("no participants in dataset")
			continue
		}
		log.Info("getting data", zap.Strings("participants", subjects))

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

			dataPath := bids.VariantPath(bids.SourceData(c.opts.OutputDir), dataset, dt)

			for _, subject := range subjects {
				state, detail := c.getSubject(ctx, dataPath, dt, dataset, subject, participants)
				c.record(ctx, runID, dataset, dt, subject, state, detail)
			}
		}
	}
	return nil
}

// getSubject fetches every matching file of one subject in one dataset
// variant and reports the terminal unit state.
func (c *Creator) getSubject(
	ctx context.Context,
	dataPath string,
	dt model.DatasetType,
	dataset, subject string,
	participants []model.Participant,
) (model.UnitState, string) {
	log := zap.L().With(
		zap.String("dataset", dataset),
		zap.String("dataset_type", dt.String()),
		zap.String("subject", subject),
	)

	if !bids.SubjectInDataset(subject, dataPath) {
		log.Debug("participant not in dataset")
		return model.UnitSkippedNoParticipant, "no participant directory"
	}

	sessions := c.sessionsFor(dataPath, dataset, subject, participants)

	fetched := false
	for _, datatype := range c.opts.Datatypes {
		filters := applyTask(c.filters.Select(dt, datatype), c.opts.Task)
		files := resolver.List(dataPath, dt, filters, subject, sessions, datatype, c.opts.Space)
		if len(files) == 0 {
			log.Warn("no files found", zap.String("datatype", datatype))
			continue
		}

		log.Debug("getting files", zap.Strings("files", files))
		if err := c.fetcher.Get(ctx, dataPath, files); err != nil {
			log.Error("failed to get files", zap.Strings("files", files), zap.Error(err))
			return model.UnitFailed, err.Error()
		}
		fetched = true
	}

	if !fetched {
		return model.UnitWarnedEmpty, "no files matched any datatype"
	}
	return model.UnitFetched, ""
}

// participantIDs returns the subjects to process for one dataset: the
// participant listing when one was supplied, otherwise every sub-* directory
// of the raw clone.
func (c *Creator) participantIDs(dataset string, participants []model.Participant) []string {
	if len(participants) > 0 {
		return listing.ParticipantIDs(participants, dataset)
	}
	dataPath := bids.DatasetPath(bids.SourceData(c.opts.OutputDir), dataset, "")
	subjects, err := bids.ListParticipants(dataPath)
	if err != nil {
		zap.L().Warn("could not list participants",
			zap.String("dataset", dataset), zap.Error(err))
		return nil
	}
	return subjects
}

// sessionsFor returns the sessions to process for one subject: those from the
// participant listing when supplied, otherwise the ses-* directories found on
// disk.
func (c *Creator) sessionsFor(dataPath, dataset, subject string, participants []model.Participant) []model.Session {
	if len(participants) > 0 {
		return listing.SessionsFor(participants, dataset, subject)
	}
	return bids.ListSessions(filepath.Join(dataPath, subject))
}

// applyTask pins the task entity of every filter group when a task was
// requested. The source group is never mutated.
func applyTask(filters bidsfilter.Group, task string) bidsfilter.Group {
	if task == "" {
		return filters
	}
	pinned := make(bidsfilter.Group, len(filters))
	for label, entry := range filters {
		entry.Task = task
		pinned[label] = entry
	}
	return pinned
}

func (c *Creator) startRun(ctx context.Context, command string) string {
	if c.journal == nil {
		return ""
	}
	run, err := c.journal.CreateRun(ctx, command, c.opts.OutputDir)
	if err != nil {
		zap.L().Warn("could not record run", zap.String("command", command), zap.Error(err))
		return ""
	}
	return run.ID
}

func (c *Creator) finishRun(ctx context.Context, runID string) {
	if c.journal == nil || runID == "" {
		return
	}
	if err := c.journal.FinishRun(ctx, runID, model.RunStatusComplete); err != nil {
		zap.L().Warn("could not finish run", zap.String("run_id", runID), zap.Error(err))
	}
}

func (c *Creator) record(ctx context.Context, runID, dataset string, dt model.DatasetType, subject string, state model.UnitState, detail string) {
	if c.journal == nil || runID == "" {
		return
	}
	unit := model.Unit{
		Dataset:     dataset,
		DatasetType: dt.String(),
		Subject:     subject,
		State:       state,
		Detail:      detail,
	}
	if err := c.journal.RecordUnit(ctx, runID, unit); err != nil {
		zap.L().Warn("could not record unit", zap.String("run_id", runID), zap.Error(err))
	}
}

func (c *Creator) recordAll(ctx context.Context, runID, dataset string, dt model.DatasetType, subjects []string, state model.UnitState, detail string) {
	for _, subject := range subjects {
		c.record(ctx, runID, dataset, dt, subject, state, detail)
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
