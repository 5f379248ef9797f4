package cohort

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// filterParticipantsTSV rewrites the copied participants.tsv so it only lists
// the subjects included in the cohort. A missing file is expected; parse or
// write failures are logged and leave the file untouched.
func filterParticipantsTSV(targetPath string, subjects []string) {
	path := filepath.Join(targetPath, "participants.tsv")
	log := zap.L().With(zap.String("file", path))

	rows, err := readParticipantsTSV(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not read participants.tsv", zap.Error(err))
		}
		return
	}
	if len(rows) == 0 {
		return
	}

	idCol := -1
	for i, name := range rows[0] {
		if name == "participant_id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		log.Warn("participants.tsv has no participant_id column")
		return
	}

	included := make(map[string]struct{}, len(subjects))
	for _, subject := range subjects {
		included[subject] = struct{}{}
	}

	filtered := [][]string{rows[0]}
	for _, row := range rows[1:] {
		if _, ok := included[row[idCol]]; ok {
			filtered = append(filtered, row)
		}
	}

	if err := writeTSV(path, filtered); err != nil {
		log.Warn("could not rewrite participants.tsv", zap.Error(err))
	}
}

func readParticipantsTSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func writeTSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
