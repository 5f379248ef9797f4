package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodatascience/cohort-creator/internal/bidsfilter"
	"github.com/neurodatascience/cohort-creator/internal/model"
)

// touch creates an empty file under root, making parent directories as needed.
func touch(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func rawAnatFilters() bidsfilter.Group {
	return bidsfilter.Group{
		"t1w": {Datatype: "anat", Suffix: "T1w", Ext: "nii.gz"},
	}
}

func TestList_SingleAnatFile(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/anat/sub-01_T1w.nii.gz")

	files := List(root, model.Raw, rawAnatFilters(), "sub-01",
		[]model.Session{model.NoSession}, "anat", "")

	assert.Equal(t, []string{"sub-01/anat/sub-01_T1w.nii.gz"}, files)
}

func TestList_FuncFilesWithRuns(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-01_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-02_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-03_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-01_events.tsv",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-02_events.tsv",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-03_events.tsv",
	} {
		touch(t, root, rel)
	}

	filters := bidsfilter.Group{
		"bold":   {Datatype: "func", Suffix: "bold", Ext: "nii.gz"},
		"events": {Datatype: "func", Suffix: "events", Ext: "tsv"},
	}

	files := List(root, model.Raw, filters, "sub-01",
		[]model.Session{model.NoSession}, "func", "")

	assert.Equal(t, []string{
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-01_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-01_events.tsv",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-02_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-02_events.tsv",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-03_bold.nii.gz",
		"sub-01/func/sub-01_task-balloonanalogrisktask_run-03_events.tsv",
	}, files)
}

func TestList_UnknownSessionIsEmptyNotError(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/ses-pre/anat/sub-01_ses-pre_T1w.nii.gz")
	touch(t, root, "sub-01/ses-post/anat/sub-01_ses-post_T1w.nii.gz")

	files := List(root, model.Raw, rawAnatFilters(), "sub-01",
		[]model.Session{"foo"}, "anat", "")

	assert.Empty(t, files)
}

func TestList_MultipleSessions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/ses-pre/anat/sub-01_ses-pre_T1w.nii.gz")
	touch(t, root, "sub-01/ses-post/anat/sub-01_ses-post_T1w.nii.gz")

	files := List(root, model.Raw, rawAnatFilters(), "sub-01",
		[]model.Session{"ses-pre", "ses-post"}, "anat", "")

	assert.Equal(t, []string{
		"sub-01/ses-post/anat/sub-01_ses-post_T1w.nii.gz",
		"sub-01/ses-pre/anat/sub-01_ses-pre_T1w.nii.gz",
	}, files)
}

func TestList_JSONSidecarsAreCollected(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/func/sub-01_task-rest_bold.nii.gz")
	touch(t, root, "sub-01/func/sub-01_task-rest_bold.json")

	filters := bidsfilter.Group{
		"bold": {Datatype: "func", Suffix: "bold", Ext: "nii.gz"},
	}

	files := List(root, model.Raw, filters, "sub-01",
		[]model.Session{model.NoSession}, "func", "")

	assert.Equal(t, []string{
		"sub-01/func/sub-01_task-rest_bold.json",
		"sub-01/func/sub-01_task-rest_bold.nii.gz",
	}, files)
}

func TestList_PreprocessedAnatAllSpaces(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"sub-01/anat/sub-01_desc-preproc_T1w.nii.gz",
		"sub-01/anat/sub-01_desc-preproc_T1w.json",
		"sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.nii.gz",
		"sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.json",
	} {
		touch(t, root, rel)
	}

	filters := bidsfilter.Group{
		"t1w": {Datatype: "anat", Suffix: "T1w", Ext: "nii.gz", Desc: "preproc"},
	}

	// No requested space: both the native and the normalized outputs match,
	// each with its sidecar.
	files := List(root, model.FMRIPrep, filters, "sub-01",
		[]model.Session{model.NoSession}, "anat", "")

	assert.Equal(t, []string{
		"sub-01/anat/sub-01_desc-preproc_T1w.json",
		"sub-01/anat/sub-01_desc-preproc_T1w.nii.gz",
		"sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.json",
		"sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.nii.gz",
	}, files)
}

func TestList_PreprocessedAnatPinnedSpace(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/anat/sub-01_desc-preproc_T1w.nii.gz")
	touch(t, root, "sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.nii.gz")

	filters := bidsfilter.Group{
		"t1w": {Datatype: "anat", Suffix: "T1w", Ext: "nii.gz", Desc: "preproc"},
	}

	files := List(root, model.FMRIPrep, filters, "sub-01",
		[]model.Session{model.NoSession}, "anat", "MNI152NLin2009cAsym")

	assert.Equal(t, []string{
		"sub-01/anat/sub-01_space-MNI152NLin2009cAsym_res-2_desc-preproc_T1w.nii.gz",
	}, files)
}

func TestList_DeduplicatesOverlappingGroups(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "sub-01/anat/sub-01_T1w.nii.gz")

	filters := bidsfilter.Group{
		"t1w":       {Datatype: "anat", Suffix: "T1w", Ext: "nii.gz"},
		"t1w_again": {Datatype: "anat", Suffix: "T1w", Ext: "nii.gz"},
	}

	files := List(root, model.Raw, filters, "sub-01",
		[]model.Session{model.NoSession}, "anat", "")

	assert.Equal(t, []string{"sub-01/anat/sub-01_T1w.nii.gz"}, files)
}

func TestList_MissingSubjectIsEmpty(t *testing.T) {
	files := List(t.TempDir(), model.Raw, rawAnatFilters(), "sub-99",
		[]model.Session{model.NoSession}, "anat", "")
	assert.Empty(t, files)
}
