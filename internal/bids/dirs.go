package bids

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// SubjectInDataset reports whether the subject has a directory under the
// dataset root.
func SubjectInDataset(subject, datasetPath string) bool {
	info, err := os.Stat(filepath.Join(datasetPath, subject))
	return err == nil && info.IsDir()
}

// ListParticipants returns the sorted sub-* directory names under the dataset
// root.
func ListParticipants(datasetPath string) ([]string, error) {
	entries, err := os.ReadDir(datasetPath)
	if err != nil {
		return nil, eris.Wrapf(err, "bids: list participants in %s", datasetPath)
	}
	var subjects []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "sub-") {
			subjects = append(subjects, entry.Name())
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// ListSessions returns the sorted ses-* directory names under a participant
// directory, or the "no session" sentinel when the participant has none.
func ListSessions(participantPath string) []model.Session {
	entries, err := os.ReadDir(participantPath)
	if err != nil {
		return []model.Session{model.NoSession}
	}
	var sessions []model.Session
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "ses-") {
			sessions = append(sessions, model.Session(entry.Name()))
		}
	}
	if len(sessions) == 0 {
		return []model.Session{model.NoSession}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i] < sessions[j] })
	return sessions
}
