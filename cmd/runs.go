package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/neurodatascience/cohort-creator/internal/model"
	"github.com/neurodatascience/cohort-creator/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect cohort-creation run history",
	Long:  "Commands for listing past install/get/copy runs and the per-subject outcomes they recorded.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cohort-creation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		command, _ := cmd.Flags().GetString("command")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			Command: command,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the per-subject outcomes of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		units, err := st.ListUnits(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(units)
		}

		if len(units) == 0 {
			fmt.Fprintln(os.Stderr, "No units recorded for this run.")
			return nil
		}

		formatUnitsList(os.Stdout, units)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().String("command", "", "filter by phase (install, get, copy)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().Bool("json", false, "print units as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tOUTPUT_DIR\tSTARTED\tDURATION")
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Command, r.Status, r.OutputDir,
			r.StartedAt.Format("2006-01-02 15:04:05"), duration)
	}
	_ = w.Flush()
}

// formatUnitsList writes a tabular list of run units to w, with a per-state
// tally at the end.
func formatUnitsList(out io.Writer, units []model.Unit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tTYPE\tSUBJECT\tSTATE\tDETAIL")

	tally := map[model.UnitState]int{}
	for _, u := range units {
		tally[u.State]++
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			u.Dataset, u.DatasetType, u.Subject, u.State, u.Detail)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d units:", len(units))
	for _, state := range []model.UnitState{
		model.UnitFetched, model.UnitCopied, model.UnitWarnedEmpty,
		model.UnitSkippedNoURI, model.UnitSkippedNoParticipant, model.UnitFailed,
	} {
		if tally[state] > 0 {
			fmt.Fprintf(out, " %s=%d", state, tally[state])
		}
	}
	fmt.Fprintln(out)
}
