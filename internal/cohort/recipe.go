package cohort

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/neurodatascience/cohort-creator/internal/model"
)

// Recipe is a declarative description of one cohort: the inputs and selection
// options that would otherwise be spread across command-line flags. It lets a
// cohort be re-created from a single checked-in file.
type Recipe struct {
	Datasets     []string `yaml:"datasets"`
	Participants string   `yaml:"participants"`
	OutputDir    string   `yaml:"output_dir"`
	DatasetTypes []string `yaml:"dataset_types"`
	Datatypes    []string `yaml:"datatypes"`
	Task         string   `yaml:"task"`
	Space        string   `yaml:"space"`
	BIDSFilter   string   `yaml:"bids_filter"`
}

// LoadRecipe reads a cohort recipe from a YAML file and applies defaults for
// the optional selection fields.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cohort: read recipe %s", path)
	}

	var wrapper struct {
		Cohort Recipe `yaml:"cohort"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "cohort: parse recipe %s", path)
	}

	recipe := &wrapper.Cohort
	if len(recipe.Datasets) == 0 && recipe.Participants == "" {
		return nil, eris.Errorf("cohort: recipe %s lists no datasets and no participant listing", path)
	}
	if len(recipe.DatasetTypes) == 0 {
		recipe.DatasetTypes = []string{model.Raw.String()}
	}
	if len(recipe.Datatypes) == 0 {
		recipe.Datatypes = []string{"anat"}
	}
	return recipe, nil
}
