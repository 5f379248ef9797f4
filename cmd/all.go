package main

import (
	"github.com/spf13/cobra"

	"github.com/neurodatascience/cohort-creator/internal/cohort"
)

var allCmd = &cobra.Command{
	Use:   "all [datasets or dataset listing TSV]",
	Short: "Install, get and copy in one invocation",
	Long: "Runs the install, get and copy phases back to back. A cohort recipe YAML " +
		"(--recipe) can replace the command-line selection entirely.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := setupAll(cmd, args)
		if err != nil {
			return err
		}
		defer in.close()

		if err := in.creator.InstallDatasets(ctx, in.datasetNames()); err != nil {
			return err
		}
		if err := in.creator.GetData(ctx, in.datasets, in.participants); err != nil {
			return err
		}
		if err := in.creator.ConstructCohort(ctx, in.datasets, in.participants); err != nil {
			return err
		}
		return finalizeCohort(cmd, in)
	},
}

// setupAll builds the run inputs from the recipe file when one is given,
// otherwise from the regular selection flags.
func setupAll(cmd *cobra.Command, args []string) (*runInputs, error) {
	ctx := cmd.Context()

	recipePath, _ := cmd.Flags().GetString("recipe")
	if recipePath == "" {
		return setupRun(ctx, cmd, args)
	}

	recipe, err := cohort.LoadRecipe(recipePath)
	if err != nil {
		return nil, err
	}

	outputDir := recipe.OutputDir
	if outputDir == "" {
		outputDir, _ = cmd.Flags().GetString("output-dir")
	}
	space := recipe.Space
	if space == "" {
		space = cfg.Cohort.Space
	}

	return buildInputs(ctx, recipe.Datasets, recipe.Participants, recipe.BIDSFilter,
		cohort.Options{
			OutputDir: outputDir,
			Datatypes: recipe.Datatypes,
			Task:      recipe.Task,
			Space:     space,
		}, recipe.DatasetTypes, cfg.Cohort.Jobs)
}

func init() {
	addSelectionFlags(allCmd)
	allCmd.Flags().Bool("skip-group-mriqc", false, "do not regenerate MRIQC group reports")
	allCmd.Flags().String("recipe", "", "path to a cohort recipe YAML replacing the selection flags")
	rootCmd.AddCommand(allCmd)
}
