package bidsfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

func TestGlobPattern(t *testing.T) {
	tests := []struct {
		name  string
		dt    model.DatasetType
		entry Entry
		want  string
	}{
		{
			name:  "raw all wildcards",
			dt:    model.Raw,
			entry: Entry{Ses: "*", Task: "*", Run: "*", Suffix: "bold", Ext: "nii.gz"},
			want:  "*_bold.nii.gz",
		},
		{
			name:  "raw with session",
			dt:    model.Raw,
			entry: Entry{Ses: "ses-preop", Task: "*", Run: "*", Suffix: "T1w", Ext: "nii.gz"},
			want:  "*ses-preop*_T1w.nii.gz",
		},
		{
			name:  "raw with task and run",
			dt:    model.Raw,
			entry: Entry{Ses: "*", Task: "rest", Run: "01", Suffix: "bold", Ext: "nii.gz"},
			want:  "*rest*01*_bold.nii.gz",
		},
		{
			name:  "qc derivative uses raw template",
			dt:    model.MRIQC,
			entry: Entry{Ses: "*", Task: "*", Run: "*", Space: "ignored", Desc: "ignored", Suffix: "bold", Ext: "json"},
			want:  "*_bold.json",
		},
		{
			name:  "preprocessing derivative with space and desc",
			dt:    model.FMRIPrep,
			entry: Entry{Ses: "*", Task: "*", Run: "*", Space: "MNI152NLin2009cAsym", Desc: "preproc", Suffix: "bold", Ext: "nii.gz"},
			want:  "*MNI152NLin2009cAsym*preproc*_bold.nii.gz",
		},
		{
			name:  "preprocessing derivative all wildcards",
			dt:    model.FMRIPrep,
			entry: Entry{Ses: "*", Task: "*", Run: "*", Space: "*", Desc: "*", Suffix: "T1w", Ext: "nii.gz"},
			want:  "*_T1w.nii.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GlobPattern(tt.dt, tt.entry))
		})
	}
}

func TestGlobPattern_NeverEmitsDoubleWildcard(t *testing.T) {
	values := []string{"*", "ses-01", "rest", ""}
	for _, ses := range values {
		for _, task := range values {
			for _, run := range values {
				for _, space := range values {
					entry := Entry{
						Ses: ses, Task: task, Run: run,
						Space: space, Desc: "*",
						Suffix: "bold", Ext: "nii.gz",
					}
					for _, dt := range []model.DatasetType{model.Raw, model.MRIQC, model.FMRIPrep} {
						pattern := GlobPattern(dt, entry)
						assert.False(t, strings.Contains(pattern, "**"),
							"double wildcard in %q (dt=%s, entry=%+v)", pattern, dt, entry)
					}
				}
			}
		}
	}
}
