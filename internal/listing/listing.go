// Package listing loads the dataset and participant listings that drive a
// cohort run. Tabular quirks (whitespace-padded headers, string-encoded
// session lists) are normalized here, once, at the input boundary.
package listing

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// DatasetRef is one row of a dataset listing.
type DatasetRef struct {
	DatasetID string
	PortalURI string
}

// LoadDatasets interprets the dataset-listing argument: several values are
// taken as dataset IDs; a single value naming an existing regular file is
// loaded as a listing TSV; any other single value is a dataset ID.
func LoadDatasets(args []string) ([]DatasetRef, error) {
	if len(args) == 0 {
		return nil, eris.New("listing: no datasets given")
	}
	if len(args) > 1 {
		refs := make([]DatasetRef, len(args))
		for i, id := range args {
			refs[i] = DatasetRef{DatasetID: id}
		}
		return refs, nil
	}
	if info, err := os.Stat(args[0]); err != nil || !info.Mode().IsRegular() {
		return []DatasetRef{{DatasetID: args[0]}}, nil
	}
	return loadDatasetTSV(args[0])
}

func loadDatasetTSV(path string) ([]DatasetRef, error) {
	rows, col, err := readTSV(path)
	if err != nil {
		return nil, err
	}
	if _, ok := col["DatasetID"]; !ok {
		return nil, eris.Errorf("listing: column 'DatasetID' not found in %s", path)
	}

	var refs []DatasetRef
	for _, row := range rows {
		ref := DatasetRef{
			DatasetID: cell(row, col, "DatasetID"),
			PortalURI: cell(row, col, "PortalURI"),
		}
		if ref.DatasetID != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// LoadParticipants loads a participant listing TSV. Each row names one
// session of one subject; the SessionID cell may hold a single session label,
// "n/a" for session-less subjects, or a string-encoded list such as
// "['ses-pre', 'ses-post']". Rows are aggregated per (dataset, subject).
func LoadParticipants(path string) ([]model.Participant, error) {
	rows, col, err := readTSV(path)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"DatasetID", "SubjectID"} {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("listing: column '%s' not found in %s", required, path)
		}
	}

	type key struct{ dataset, subject string }
	index := map[key]int{}
	var participants []model.Participant

	for _, row := range rows {
		k := key{cell(row, col, "DatasetID"), cell(row, col, "SubjectID")}
		if k.dataset == "" || k.subject == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(participants)
			index[k] = i
			participants = append(participants, model.Participant{
				DatasetID: k.dataset,
				SubjectID: k.subject,
			})
		}
		for _, ses := range parseSessionCell(cell(row, col, "SessionID")) {
			participants[i].Sessions = appendSession(participants[i].Sessions, ses)
		}
	}

	for i := range participants {
		sort.Slice(participants[i].Sessions, func(a, b int) bool {
			return participants[i].Sessions[a] < participants[i].Sessions[b]
		})
	}
	return participants, nil
}

func appendSession(sessions []model.Session, ses model.Session) []model.Session {
	for _, existing := range sessions {
		if existing == ses {
			return sessions
		}
	}
	return append(sessions, ses)
}

func parseSessionCell(value string) []model.Session {
	if value == "" || value == "n/a" {
		return []model.Session{model.NoSession}
	}
	if strings.HasPrefix(value, "[") {
		return ParseSessionList(value)
	}
	return []model.Session{model.Session(value)}
}

// ParseSessionList converts a string-encoded list like "['ses-pre', 'ses-post']"
// into sessions. The empty list marks a session-less subject.
func ParseSessionList(encoded string) []model.Session {
	if encoded == "[]" {
		return []model.Session{model.NoSession}
	}
	trimmed := strings.NewReplacer("[", "", "]", "", "'", "", `"`, "").Replace(encoded)
	parts := strings.Split(trimmed, ",")
	sessions := make([]model.Session, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "n/a" {
			sessions = append(sessions, model.NoSession)
			continue
		}
		sessions = append(sessions, model.Session(part))
	}
	return sessions
}

// ParticipantIDs returns the sorted unique subject IDs of a dataset, or nil
// when the listing has none for it.
func ParticipantIDs(participants []model.Participant, dataset string) []string {
	var ids []string
	for _, p := range participants {
		if p.DatasetID == dataset {
			ids = append(ids, p.SubjectID)
		}
	}
	sort.Strings(ids)
	return ids
}

// SessionsFor returns the sessions requested for one subject of one dataset.
func SessionsFor(participants []model.Participant, dataset, subject string) []model.Session {
	for _, p := range participants {
		if p.DatasetID == dataset && p.SubjectID == subject {
			return p.Sessions
		}
	}
	return []model.Session{model.NoSession}
}

// DatasetNames returns the sorted dataset names to process. With a participant
// listing, the participant listing decides which datasets take part; its
// dataset IDs are resolved through the dataset listing's portal URIs when
// available.
func DatasetNames(datasets []DatasetRef, participants []model.Participant) []string {
	if len(participants) == 0 {
		names := make([]string, 0, len(datasets))
		for _, ref := range datasets {
			names = append(names, ref.DatasetID)
		}
		sort.Strings(names)
		return names
	}

	byID := map[string]DatasetRef{}
	for _, ref := range datasets {
		byID[ref.DatasetID] = ref
	}

	seen := map[string]struct{}{}
	var names []string
	for _, p := range participants {
		if _, ok := seen[p.DatasetID]; ok {
			continue
		}
		seen[p.DatasetID] = struct{}{}

		name := p.DatasetID
		if ref, ok := byID[p.DatasetID]; ok && ref.PortalURI != "" {
			name = strings.TrimSuffix(filepath.Base(ref.PortalURI), ".git")
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readTSV loads a whole TSV file, returning its rows and a header index.
// Header cells are trimmed so whitespace-padded exports resolve normally.
func readTSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "listing: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "listing: read header of %s", path)
	}
	col := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name != "" {
			col[name] = i
		}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "listing: read row of %s", path)
		}
		rows = append(rows, row)
	}
	return rows, col, nil
}

func cell(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
