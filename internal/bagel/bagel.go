// Package bagel builds the bagel.csv processing-status table that tracks
// which subjects have been processed by which pipeline, in the format the
// neurobagel digest dashboard consumes.
package bagel

import (
	"encoding/csv"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neurodatascience/cohort-creator/internal/bids"
	"github.com/neurodatascience/cohort-creator/internal/model"
)

// Completion statuses of one (subject, session, pipeline) record.
const (
	StatusSuccess     = "SUCCESS"
	StatusFail        = "FAIL"
	StatusIncomplete  = "INCOMPLETE"
	StatusUnavailable = "UNAVAILABLE"
)

// FileName is the name of the status table inside the cohort.
const FileName = "bagel.csv"

var header = []string{
	"dataset_id", "bids_id", "participant_id", "session", "has_mri_data",
	"pipeline_name", "pipeline_version", "pipeline_starttime", "pipeline_complete",
}

// Record is one row of the status table.
type Record struct {
	DatasetID       string
	BIDSID          string
	ParticipantID   string
	Session         string
	HasMRIData      string
	PipelineName    string
	PipelineVersion string
	StartTime       string
	Complete        string
}

// Write builds the status table for every (dataset, derivative type) pair of
// the cohort and writes it to bagel.csv in the output directory. Datasets are
// scanned concurrently; the table rows are sorted so output is deterministic.
func Write(outputDir string, datasets []string, datasetTypes []model.DatasetType, workers int) error {
	zap.L().Info("creating bagel.csv")

	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	var records []Record

	var g errgroup.Group
	g.SetLimit(workers)

	for _, dt := range datasetTypes {
		if !dt.Derivative() {
			continue
		}
		for _, dataset := range datasets {
			g.Go(func() error {
				rows := scanDataset(outputDir, dataset, dt)
				mu.Lock()
				records = append(records, rows...)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.DatasetID != b.DatasetID {
			return a.DatasetID < b.DatasetID
		}
		if a.PipelineName != b.PipelineName {
			return a.PipelineName < b.PipelineName
		}
		if a.BIDSID != b.BIDSID {
			return a.BIDSID < b.BIDSID
		}
		return a.Session < b.Session
	})

	path := filepath.Join(outputDir, FileName)
	if err := writeCSV(path, records); err != nil {
		return err
	}

	zap.L().Info("cohort status table written",
		zap.String("file", path),
		zap.String("hint", "upload to https://digest.neurobagel.org/ to inspect processing status"))
	return nil
}

// scanDataset produces the records of one dataset for one derivative type.
// A dataset whose raw study folder is missing contributes no rows.
func scanDataset(outputDir, dataset string, dt model.DatasetType) []Record {
	rawPath := bids.TargetPath(outputDir, model.Raw, dataset, "")

	srcPath := bids.VariantPath(bids.SourceData(outputDir), dataset, dt)
	derivativePath := bids.TargetPath(outputDir, dt, dataset, srcPath)

	name := bids.DisplayName(derivativePath)
	version := bids.DisplayVersion(derivativePath)
	started := time.Now().Format("2006-01-02 15:04:05")

	subjects, err := bids.ListParticipants(rawPath)
	if err != nil {
		zap.L().Debug("no raw study folder for dataset",
			zap.String("dataset", dataset), zap.Error(err))
		return nil
	}

	var records []Record
	for _, subject := range subjects {
		for _, session := range bids.ListSessions(filepath.Join(rawPath, subject)) {
			sessionLabel := "1"
			if !session.None() {
				sessionLabel = string(session)
			}
			records = append(records, Record{
				DatasetID:       dataset,
				BIDSID:          subject,
				ParticipantID:   subject,
				Session:         sessionLabel,
				HasMRIData:      "TRUE",
				PipelineName:    name,
				PipelineVersion: version,
				StartTime:       started,
				Complete:        subjectStatus(rawPath, derivativePath, subject, session),
			})
		}
	}
	return records
}

// subjectStatus grades one subject-session by comparing the imaging file
// counts of the derivative folder against the raw folder.
func subjectStatus(rawPath, derivativePath string, subject string, session model.Session) string {
	if _, err := os.Stat(derivativePath); err != nil {
		return StatusUnavailable
	}

	processed := countImagingFiles(subjectDir(derivativePath, subject, session), false)
	if processed == 0 {
		return StatusFail
	}

	raw := countImagingFiles(subjectDir(rawPath, subject, session), true)
	if processed >= raw {
		return StatusSuccess
	}
	return StatusIncomplete
}

func subjectDir(root, subject string, session model.Session) string {
	if session.None() {
		return filepath.Join(root, subject)
	}
	return filepath.Join(root, subject, string(session))
}

// countImagingFiles counts the files under the anat and func folders of a
// subject-session directory. For raw data only imaging files count, so
// sidecars do not inflate the expected total.
func countImagingFiles(dir string, imagesOnly bool) int {
	count := 0
	for _, datatype := range []string{"anat", "func"} {
		_ = filepath.WalkDir(filepath.Join(dir, datatype), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if imagesOnly && !strings.HasSuffix(d.Name(), ".nii") && !strings.HasSuffix(d.Name(), ".nii.gz") {
				return nil
			}
			count++
			return nil
		})
	}
	return count
}

func writeCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "bagel: create %s", path)
	}

	w := csv.NewWriter(f)
	rows := [][]string{header}
	for _, r := range records {
		rows = append(rows, []string{
			r.DatasetID, r.BIDSID, r.ParticipantID, r.Session, r.HasMRIData,
			r.PipelineName, r.PipelineVersion, r.StartTime, r.Complete,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return eris.Wrapf(err, "bagel: write %s", path)
	}
	return eris.Wrapf(f.Close(), "bagel: close %s", path)
}
