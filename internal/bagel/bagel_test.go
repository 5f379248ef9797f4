package bagel

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWrite(t *testing.T) {
	out := t.TempDir()
	study := filepath.Join(out, "study-ds000001")

	// Raw study: two subjects, no sessions.
	touch(t, filepath.Join(study, "sub-01", "anat", "sub-01_T1w.nii.gz"))
	touch(t, filepath.Join(study, "sub-02", "anat", "sub-02_T1w.nii.gz"))

	// MRIQC derivative only covers sub-01.
	mriqc := filepath.Join(study, "derivatives", "mriqc")
	touch(t, filepath.Join(mriqc, "sub-01", "anat", "sub-01_T1w.json"))
	require.NoError(t, os.MkdirAll(mriqc, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mriqc, "dataset_description.json"),
		[]byte(`{"GeneratedBy": [{"Name": "MRIQC", "Version": "23.1.0"}]}`), 0o644))

	require.NoError(t, Write(out, []string{"ds000001"}, []model.DatasetType{model.Raw, model.MRIQC}, 2))

	rows := readCSV(t, filepath.Join(out, FileName))
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])

	// Sorted by subject: sub-01 processed, sub-02 not.
	assert.Equal(t, "sub-01", rows[1][1])
	assert.Equal(t, StatusSuccess, rows[1][8])
	assert.Equal(t, "MRIQC", rows[1][5])
	assert.Equal(t, "23.1.0", rows[1][6])
	assert.Equal(t, "sub-02", rows[2][1])
	assert.Equal(t, StatusFail, rows[2][8])

	// Raw is not a pipeline, so it contributes no rows.
	for _, row := range rows[1:] {
		assert.Equal(t, "ds000001", row[0])
		assert.Equal(t, "1", row[3])
		assert.Equal(t, "TRUE", row[4])
	}
}

func TestWrite_SessionsAndUnavailable(t *testing.T) {
	out := t.TempDir()
	study := filepath.Join(out, "study-ds000117")
	touch(t, filepath.Join(study, "sub-01", "ses-mri", "anat", "sub-01_ses-mri_T1w.nii.gz"))
	touch(t, filepath.Join(study, "sub-01", "ses-meg", "anat", "sub-01_ses-meg_T1w.nii.gz"))

	require.NoError(t, Write(out, []string{"ds000117"}, []model.DatasetType{model.FMRIPrep}, 1))

	rows := readCSV(t, filepath.Join(out, FileName))
	require.Len(t, rows, 3)
	assert.Equal(t, "ses-meg", rows[1][3])
	assert.Equal(t, "ses-mri", rows[2][3])
	for _, row := range rows[1:] {
		assert.Equal(t, StatusUnavailable, row[8])
		assert.Equal(t, "fMRIPrep", row[5])
		// No derivative clone on disk, so the fallback version is used.
		assert.Equal(t, "21.0.1", row[6])
	}
}

func TestWrite_Incomplete(t *testing.T) {
	out := t.TempDir()
	study := filepath.Join(out, "study-ds000001")
	touch(t, filepath.Join(study, "sub-01", "anat", "sub-01_T1w.nii.gz"))
	touch(t, filepath.Join(study, "sub-01", "func", "sub-01_task-rest_bold.nii.gz"))

	fmriprep := filepath.Join(study, "derivatives", "fmriprep")
	touch(t, filepath.Join(fmriprep, "sub-01", "anat", "sub-01_desc-preproc_T1w.nii.gz"))

	require.NoError(t, Write(out, []string{"ds000001"}, []model.DatasetType{model.FMRIPrep}, 1))

	rows := readCSV(t, filepath.Join(out, FileName))
	require.Len(t, rows, 2)
	assert.Equal(t, StatusIncomplete, rows[1][8])
}

func TestWrite_NoDatasets(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, Write(out, nil, []model.DatasetType{model.MRIQC}, 1))

	rows := readCSV(t, filepath.Join(out, FileName))
	require.Len(t, rows, 1)
	assert.Equal(t, header, rows[0])
}
