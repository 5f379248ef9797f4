package cohort

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/bids"
)

const notAvailable = "n/a"

// studyRow is one line of studies.tsv.
type studyRow struct {
	id                 string
	meanAge            string
	ratioFemale        string
	institutionName    string
	institutionAddress string
}

// writeStudyListing writes studies.tsv (one row per dataset, with basic
// demographics pulled from each copied participants.tsv and scanner
// institutions pulled from the imaging sidecars) and its studies.json data
// dictionary.
func writeStudyListing(outputDir string, datasets []string) error {
	zap.L().Info("creating studies.tsv")

	rows := [][]string{{"study_ID", "mean_age", "ratio_female", "InstitutionName", "InstitutionAddress"}}
	for _, dataset := range datasets {
		row := studyListingRow(outputDir, dataset)
		rows = append(rows, []string{
			row.id, row.meanAge, row.ratioFemale, row.institutionName, row.institutionAddress,
		})
	}

	path := filepath.Join(outputDir, "studies.tsv")
	if err := writeTSV(path, rows); err != nil {
		return eris.Wrapf(err, "cohort: write %s", path)
	}
	return writeStudyDictionary(outputDir)
}

func studyListingRow(outputDir, dataset string) studyRow {
	row := studyRow{
		id:                 dataset,
		meanAge:            notAvailable,
		ratioFemale:        notAvailable,
		institutionName:    notAvailable,
		institutionAddress: notAvailable,
	}

	studyDir := filepath.Join(outputDir, bids.StudyDir(dataset))
	table, err := readParticipantsTSV(filepath.Join(studyDir, "participants.tsv"))
	if err != nil || len(table) < 2 {
		return row
	}

	header := table[0]
	row.meanAge = meanColumn(table, columnIndex(header, "age"))
	row.ratioFemale = valueRatio(table, columnIndex(header, "sex"), "F")
	row.institutionName, row.institutionAddress = scanInstitutions(studyDir)
	return row
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

// meanColumn averages the parsable numeric values of one column.
func meanColumn(table [][]string, col int) string {
	if col < 0 {
		return notAvailable
	}
	sum, n := 0.0, 0
	for _, row := range table[1:] {
		if col >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(sum/float64(n), 'g', -1, 64)
}

// valueRatio returns the share of rows whose column equals value, among rows
// that have any value in that column.
func valueRatio(table [][]string, col int, value string) string {
	if col < 0 {
		return notAvailable
	}
	hits, total := 0, 0
	for _, row := range table[1:] {
		if col >= len(row) || row[col] == "" || row[col] == notAvailable {
			continue
		}
		total++
		if row[col] == value {
			hits++
		}
	}
	if total == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(float64(hits)/float64(total), 'g', -1, 64)
}

// scanInstitutions collects the distinct InstitutionName/InstitutionAddress
// values from the imaging JSON sidecars of a study folder.
func scanInstitutions(studyDir string) (string, string) {
	names := map[string]struct{}{}
	addresses := map[string]struct{}{}

	_ = filepath.WalkDir(studyDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isImagingSidecar(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var sidecar struct {
			InstitutionName    string `json:"InstitutionName"`
			InstitutionAddress string `json:"InstitutionAddress"`
		}
		if json.Unmarshal(data, &sidecar) != nil {
			return nil
		}
		if sidecar.InstitutionName != "" {
			names[sidecar.InstitutionName] = struct{}{}
		}
		if sidecar.InstitutionAddress != "" {
			addresses[sidecar.InstitutionAddress] = struct{}{}
		}
		return nil
	})

	return joinSet(names), joinSet(addresses)
}

func isImagingSidecar(name string) bool {
	for _, suffix := range []string{"_bold.json", "_T1w.json", "_T2w.json"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func joinSet(set map[string]struct{}) string {
	if len(set) == 0 {
		return notAvailable
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, "; ")
}

func writeStudyDictionary(outputDir string) error {
	dictionary := map[string]map[string]string{
		"study_ID": {
			"LongName":    "ID of the Study",
			"Description": "string representing the name of the study",
		},
		"mean_age": {
			"LongName":    "participants mean age",
			"Description": "mean of the age of all participants in the study",
		},
		"ratio_female": {
			"Description": "ratio of female participants in the study",
		},
		"InstitutionName": {
			"Description": "Institution(s) where this study was conducted.",
		},
		"InstitutionAddress": {
			"Description": "Institution(s) address where this study was conducted.",
		},
	}
	data, err := json.MarshalIndent(dictionary, "", "    ")
	if err != nil {
		return eris.Wrap(err, "cohort: marshal studies.json")
	}
	path := filepath.Join(outputDir, "studies.json")
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "cohort: write %s", path)
}
