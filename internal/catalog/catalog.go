// Package catalog looks up the datasets known to the cohort creator and the
// remote URIs of their variants. The catalog is read-only input: it is loaded
// once and passed to the orchestrator as an explicit collaborator.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

//go:embed data/openneuro.tsv
var defaultListingTSV []byte

// Record is one known dataset and the source URIs of its variants. An empty
// URI means the variant does not exist for this dataset.
type Record struct {
	Name      string
	PortalURI string
	uris      map[string]string
}

// URI returns the source URI of the given dataset variant, or "" when the
// catalog has none.
func (r Record) URI(dt model.DatasetType) string {
	return r.uris[dt.String()]
}

// Catalog is the set of datasets known to the cohort creator.
type Catalog struct {
	records []Record
	byName  map[string]int
}

// Load reads a catalog listing TSV. An empty path loads the built-in
// OpenNeuro listing.
func Load(path string) (*Catalog, error) {
	data := defaultListingTSV
	source := "builtin"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: read listing %s", path)
		}
		source = path
	}
	return parse(bytes.NewReader(data), source)
}

func parse(r io.Reader, source string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read header of %s", source)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, eris.Errorf("catalog: column 'name' not found in %s (columns: %s)",
			source, strings.Join(header, ", "))
	}

	cat := &Catalog{byName: map[string]int{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: read row of %s", source)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			v := strings.TrimSpace(row[i])
			if v == "n/a" {
				return ""
			}
			return v
		}

		rec := Record{
			Name:      field("name"),
			PortalURI: field("portal_uri"),
			uris: map[string]string{
				"raw":      field("raw"),
				"mriqc":    field("mriqc"),
				"fmriprep": field("fmriprep"),
			},
		}
		if rec.Name == "" {
			continue
		}
		cat.byName[rec.Name] = len(cat.records)
		cat.records = append(cat.records, rec)
	}
	return cat, nil
}

// Lookup returns the record of a dataset by name.
func (c *Catalog) Lookup(name string) (Record, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}
