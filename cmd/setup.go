package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/neurodatascience/cohort-creator/internal/bidsfilter"
	"github.com/neurodatascience/cohort-creator/internal/catalog"
	"github.com/neurodatascience/cohort-creator/internal/cohort"
	"github.com/neurodatascience/cohort-creator/internal/datalad"
	"github.com/neurodatascience/cohort-creator/internal/listing"
	"github.com/neurodatascience/cohort-creator/internal/model"
	"github.com/neurodatascience/cohort-creator/internal/store"
)

// runInputs bundles everything one install/get/copy invocation needs.
type runInputs struct {
	creator      *cohort.Creator
	journal      store.Store
	datasets     []listing.DatasetRef
	participants []model.Participant
	opts         cohort.Options
}

func (in *runInputs) close() {
	if in.journal != nil {
		in.journal.Close() //nolint:errcheck
	}
}

// datasetNames returns the sorted names of the datasets this run covers.
func (in *runInputs) datasetNames() []string {
	return listing.DatasetNames(in.datasets, in.participants)
}

// addSelectionFlags registers the flags shared by install, get, copy and all.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", "outputs", "directory the cohort is created in")
	cmd.Flags().StringSlice("dataset-types", []string{"raw"}, "dataset variants to process (raw, mriqc, fmriprep)")
	cmd.Flags().StringSlice("datatypes", []string{"anat"}, "BIDS datatypes to process (anat, func, ...)")
	cmd.Flags().String("participants", "", "path to a participant listing TSV; all subjects when omitted")
	cmd.Flags().String("task", "", "only include files of this task (defaults to config)")
	cmd.Flags().String("space", "", "processing space for fmriprep outputs (defaults to config)")
	cmd.Flags().String("bids-filter-file", "", "path to a BIDS filter JSON overriding the built-in default")
	cmd.Flags().Int("jobs", 0, "parallel downloads for datalad get (defaults to config)")
}

// setupRun resolves flags against config defaults and wires the orchestrator
// and its collaborators. args name datasets directly or a dataset listing TSV.
func setupRun(ctx context.Context, cmd *cobra.Command, args []string) (*runInputs, error) {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	typeTokens, _ := cmd.Flags().GetStringSlice("dataset-types")
	datatypes, _ := cmd.Flags().GetStringSlice("datatypes")
	participantsPath, _ := cmd.Flags().GetString("participants")
	task, _ := cmd.Flags().GetString("task")
	space, _ := cmd.Flags().GetString("space")
	filterPath, _ := cmd.Flags().GetString("bids-filter-file")
	jobs, _ := cmd.Flags().GetInt("jobs")

	if task == "" {
		task = cfg.Cohort.Task
	}
	if space == "" {
		space = cfg.Cohort.Space
	}
	if jobs <= 0 {
		jobs = cfg.Cohort.Jobs
	}

	return buildInputs(ctx, args, participantsPath, filterPath, cohort.Options{
		OutputDir: outputDir,
		Datatypes: datatypes,
		Task:      task,
		Space:     space,
	}, typeTokens, jobs)
}

func buildInputs(
	ctx context.Context,
	datasetArgs []string,
	participantsPath, filterPath string,
	opts cohort.Options,
	typeTokens []string,
	jobs int,
) (*runInputs, error) {
	datasetTypes, err := model.ParseDatasetTypes(typeTokens)
	if err != nil {
		return nil, err
	}
	opts.DatasetTypes = datasetTypes

	for _, datatype := range opts.Datatypes {
		if !model.IsKnownDatatype(datatype) {
			return nil, eris.Errorf("datatype %q is not a known BIDS datatype", datatype)
		}
	}

	if len(datasetArgs) == 0 && participantsPath == "" {
		return nil, eris.New("nothing to do: name datasets (or a dataset listing TSV) or pass --participants")
	}

	var datasets []listing.DatasetRef
	if len(datasetArgs) > 0 {
		if datasets, err = listing.LoadDatasets(datasetArgs); err != nil {
			return nil, err
		}
	}

	var participants []model.Participant
	if participantsPath != "" {
		if participants, err = listing.LoadParticipants(participantsPath); err != nil {
			return nil, err
		}
	}

	cat, err := catalog.Load(cfg.Catalog.Listing)
	if err != nil {
		return nil, err
	}
	filters, err := bidsfilter.Load(filterPath)
	if err != nil {
		return nil, err
	}

	journal, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := journal.Migrate(ctx); err != nil {
		journal.Close() //nolint:errcheck
		return nil, err
	}

	fetcher := datalad.New(cfg.Datalad.Binary, jobs)

	return &runInputs{
		creator:      cohort.New(cat, fetcher, journal, filters, opts),
		journal:      journal,
		datasets:     datasets,
		participants: participants,
		opts:         opts,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "cohort_creator.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
