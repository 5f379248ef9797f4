package main

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [datasets or dataset listing TSV]",
	Short: "Install the datalad clones of the requested datasets",
	Long: "Installs the raw and derivative clones of each dataset under sourcedata/ " +
		"in the output directory. Datasets are named directly or through a dataset listing TSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := setupRun(ctx, cmd, args)
		if err != nil {
			return err
		}
		defer in.close()

		return in.creator.InstallDatasets(ctx, in.datasetNames())
	},
}

func init() {
	addSelectionFlags(installCmd)
	rootCmd.AddCommand(installCmd)
}
