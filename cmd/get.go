package main

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [datasets or dataset listing TSV]",
	Short: "Fetch the file content for the requested participants",
	Long: "Resolves the files matching the requested datatypes and filters for every " +
		"participant and fetches their annexed content from the installed clones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := setupRun(ctx, cmd, args)
		if err != nil {
			return err
		}
		defer in.close()

		return in.creator.GetData(ctx, in.datasets, in.participants)
	},
}

func init() {
	addSelectionFlags(getCmd)
	rootCmd.AddCommand(getCmd)
}
