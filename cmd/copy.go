package main

import (
	"github.com/spf13/cobra"

	"github.com/neurodatascience/cohort-creator/internal/bagel"
	"github.com/neurodatascience/cohort-creator/internal/mriqc"
)

var copyCmd = &cobra.Command{
	Use:   "copy [datasets or dataset listing TSV]",
	Short: "Copy the fetched files into a BIDS cohort",
	Long: "Copies the fetched files of every participant from the installed clones into " +
		"the study-* cohort layout, then writes the study listing, the bagel.csv status " +
		"table, and regenerates MRIQC group reports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := setupRun(ctx, cmd, args)
		if err != nil {
			return err
		}
		defer in.close()

		if err := in.creator.ConstructCohort(ctx, in.datasets, in.participants); err != nil {
			return err
		}
		return finalizeCohort(cmd, in)
	},
}

// finalizeCohort writes the bagel status table and regenerates the MRIQC
// group reports unless skipped.
func finalizeCohort(cmd *cobra.Command, in *runInputs) error {
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = cfg.Cohort.Jobs
	}

	names := in.datasetNames()
	if err := bagel.Write(in.opts.OutputDir, names, in.opts.DatasetTypes, jobs); err != nil {
		return err
	}

	if skip, _ := cmd.Flags().GetBool("skip-group-mriqc"); skip {
		return nil
	}
	runner := mriqc.New("")
	return runner.GroupReports(cmd.Context(), in.opts.OutputDir, names, in.opts.DatasetTypes)
}

func init() {
	addSelectionFlags(copyCmd)
	copyCmd.Flags().Bool("skip-group-mriqc", false, "do not regenerate MRIQC group reports")
	rootCmd.AddCommand(copyCmd)
}
