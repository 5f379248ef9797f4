package cohort

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodatascience/cohort-creator/internal/bidsfilter"
	"github.com/neurodatascience/cohort-creator/internal/catalog"
	"github.com/neurodatascience/cohort-creator/internal/listing"
	"github.com/neurodatascience/cohort-creator/internal/model"
	"github.com/neurodatascience/cohort-creator/internal/store"
)

type fetchCall struct {
	datasetPath string
	paths       []string
}

// fakeFetcher records install and get calls; getErr fails Get for the paths
// whose first element matches failOn.
type fakeFetcher struct {
	installs []fetchCall
	gets     []fetchCall
	failOn   string
}

func (f *fakeFetcher) Install(ctx context.Context, uri, target string) error {
	f.installs = append(f.installs, fetchCall{datasetPath: target, paths: []string{uri}})
	return nil
}

func (f *fakeFetcher) Get(ctx context.Context, datasetPath string, paths []string) error {
	f.gets = append(f.gets, fetchCall{datasetPath: datasetPath, paths: paths})
	if f.failOn != "" && len(paths) > 0 && paths[0] == f.failOn {
		return errors.New("some files unavailable")
	}
	return nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func newTestCreator(t *testing.T, outputDir string, journal store.Store, opts Options) (*Creator, *fakeFetcher) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	filters, err := bidsfilter.Load("")
	require.NoError(t, err)

	opts.OutputDir = outputDir
	if len(opts.Datatypes) == 0 {
		opts.Datatypes = []string{"anat"}
	}
	fetcher := &fakeFetcher{}
	return New(cat, fetcher, journal, filters, opts), fetcher
}

func TestInstallDatasets(t *testing.T) {
	out := t.TempDir()
	c, fetcher := newTestCreator(t, out, nil, Options{
		DatasetTypes: []model.DatasetType{model.Raw, model.MRIQC},
	})

	err := c.InstallDatasets(context.Background(), []string{"ds000001", "ds999999"})
	require.NoError(t, err)

	require.Len(t, fetcher.installs, 2)
	assert.Equal(t, filepath.Join(out, "sourcedata", "ds000001"), fetcher.installs[0].datasetPath)
	assert.Equal(t, filepath.Join(out, "sourcedata", "ds000001-mriqc"), fetcher.installs[1].datasetPath)
}

func TestInstallDatasets_SkipsVariantWithoutURI(t *testing.T) {
	// ds004276 has no fmriprep clone in the listing.
	out := t.TempDir()
	c, fetcher := newTestCreator(t, out, nil, Options{
		DatasetTypes: []model.DatasetType{model.Raw, model.FMRIPrep},
	})

	require.NoError(t, c.InstallDatasets(context.Background(), []string{"ds004276"}))

	require.Len(t, fetcher.installs, 1)
	assert.Equal(t, filepath.Join(out, "sourcedata", "ds004276"), fetcher.installs[0].datasetPath)
}

func TestGetData_FetchesResolvedFiles(t *testing.T) {
	out := t.TempDir()
	dataPath := filepath.Join(out, "sourcedata", "ds000001")
	touch(t, filepath.Join(dataPath, "sub-01", "anat", "sub-01_T1w.nii.gz"))

	c, fetcher := newTestCreator(t, out, nil, Options{
		DatasetTypes: []model.DatasetType{model.Raw},
	})

	participants := []model.Participant{
		{DatasetID: "ds000001", SubjectID: "sub-01", Sessions: []model.Session{model.NoSession}},
	}
	err := c.GetData(context.Background(), nil, participants)
	require.NoError(t, err)

	require.Len(t, fetcher.gets, 1)
	assert.Equal(t, dataPath, fetcher.gets[0].datasetPath)
	assert.Equal(t, []string{"sub-01/anat/sub-01_T1w.nii.gz"}, fetcher.gets[0].paths)
}

func TestGetData_SkipsMissingParticipant(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "sourcedata", "ds000001", "sub-01", "anat", "sub-01_T1w.nii.gz"))

	journal, err := store.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	require.NoError(t, journal.Migrate(context.Background()))

	c, fetcher := newTestCreator(t, out, journal, Options{
		DatasetTypes: []model.DatasetType{model.Raw},
	})

	participants := []model.Participant{
		{DatasetID: "ds000001", SubjectID: "sub-01", Sessions: []model.Session{model.NoSession}},
		{DatasetID: "ds000001", SubjectID: "sub-99", Sessions: []model.Session{model.NoSession}},
	}
	require.NoError(t, c.GetData(context.Background(), nil, participants))

	require.Len(t, fetcher.gets, 1)

	runs, err := journal.ListRuns(context.Background(), store.RunFilter{Command: "get"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)

	units, err := journal.ListUnits(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, units, 2)

	states := map[string]model.UnitState{}
	for _, unit := range units {
		states[unit.Subject] = unit.State
	}
	assert.Equal(t, model.UnitFetched, states["sub-01"])
	assert.Equal(t, model.UnitSkippedNoParticipant, states["sub-99"])
}

func TestGetData_PartialFailureDoesNotAbort(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "sourcedata", "ds000001", "sub-01", "anat", "sub-01_T1w.nii.gz"))
	touch(t, filepath.Join(out, "sourcedata", "ds000001", "sub-02", "anat", "sub-02_T1w.nii.gz"))

	c, fetcher := newTestCreator(t, out, nil, Options{
		DatasetTypes: []model.DatasetType{model.Raw},
	})
	fetcher.failOn = "sub-01/anat/sub-01_T1w.nii.gz"

	participants := []model.Participant{
		{DatasetID: "ds000001", SubjectID: "sub-01", Sessions: []model.Session{model.NoSession}},
		{DatasetID: "ds000001", SubjectID: "sub-02", Sessions: []model.Session{model.NoSession}},
	}
	err := c.GetData(context.Background(), nil, participants)
	require.NoError(t, err)

	// sub-02 was still processed after sub-01's fetch failed.
	require.Len(t, fetcher.gets, 2)
	assert.Equal(t, []string{"sub-02/anat/sub-02_T1w.nii.gz"}, fetcher.gets[1].paths)
}

func TestGetData_ListsParticipantsFromDiskWithoutListing(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "sourcedata", "ds000001", "sub-01", "anat", "sub-01_T1w.nii.gz"))
	touch(t, filepath.Join(out, "sourcedata", "ds000001", "sub-02", "anat", "sub-02_T1w.nii.gz"))

	c, fetcher := newTestCreator(t, out, nil, Options{
		DatasetTypes: []model.DatasetType{model.Raw},
	})

	datasets := []listing.DatasetRef{{DatasetID: "ds000001"}}
	require.NoError(t, c.GetData(context.Background(), datasets, nil))

	require.Len(t, fetcher.gets, 2)
}

func TestApplyTask(t *testing.T) {
	group := bidsfilter.Group{
		"bold": {Datatype: "func", Suffix: "bold", Ext: "nii.gz"},
	}

	pinned := applyTask(group, "rest")
	assert.Equal(t, "rest", pinned["bold"].Task)
	assert.Empty(t, group["bold"].Task, "source group must not be mutated")

	assert.Equal(t, group, applyTask(group, ""))
}
