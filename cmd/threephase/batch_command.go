package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"threephase/internal/recipe"
	"threephase/internal/textutil"
	"threephase/internal/workflow"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var parallel int
	var writeOnly, debug, skipChecks, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <jobs.yaml>",
		Short: "Write and run several recipes concurrently",
		Long: "Write and run every job listed in a jobs file. Jobs run at most --parallel at a " +
			"time; a failed job does not stop the others. Each job needs its own output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipChecks && !writeOnly {
				if err := requirePreflight(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			specs, err := workflow.LoadJobs(args[0])
			if err != nil {
				return err
			}
			opts, err := ctx.recipeOptions(cmd, debug)
			if err != nil {
				return err
			}
			jobs := make([]workflow.Job, 0, len(specs))
			for _, spec := range specs {
				job, err := spec.Build(cfg.Paths.OutputDir, cfg.Recipe.SkyDensity, opts)
				if err != nil {
					return err
				}
				job.WriteOnly = writeOnly
				jobs = append(jobs, job)
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			if parallel == 0 {
				parallel = cfg.Workflow.MaxParallelRecipes
			}
			manager := workflow.NewManager(parallel, ctx.log(),
				workflow.WithStore(st),
				workflow.WithRunOptions(recipe.RunOptions{Debug: debug}),
			)
			outcomes, runErr := manager.RunAll(cmd.Context(), jobs)
			if outcomes == nil {
				return runErr
			}

			if jsonOutput {
				out := make([]batchOutcome, 0, len(outcomes))
				for _, outcome := range outcomes {
					out = append(out, batchJSON(outcome))
				}
				if err := writeJSON(cmd, out); err != nil {
					return errors.Join(runErr, err)
				}
			} else {
				printOutcomes(cmd, outcomes)
			}
			if runErr != nil {
				return fmt.Errorf("batch: %w", runErr)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 0, "Recipes to run at once (defaults to workflow.max_parallel_recipes)")
	cmd.Flags().BoolVar(&writeOnly, "write-only", false, "Only write recipe files and scripts")
	cmd.Flags().BoolVar(&debug, "debug", false, "Append a pause to each script")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printOutcomes(cmd *cobra.Command, outcomes []workflow.Outcome) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(outcomes))
	failed := 0
	for _, outcome := range outcomes {
		kind := runStateKind(outcome.Session.State, outcome.Session.ExitCode, "")
		if outcome.Err != nil {
			kind = statusError
			failed++
		}
		state := textutil.DisplayName(outcome.Session.State.String())
		if outcome.Session.ID == "" {
			state = "-"
		}
		rows = append(rows, []string{
			outcome.Project,
			shortID(outcome.Session.ID),
			colorizeText(state, statusKindColor(kind), colorize),
			outcome.Duration.Round(time.Millisecond).String(),
		})
	}
	footer := []string{fmt.Sprintf("%d jobs", len(outcomes)), "", fmt.Sprintf("%d failed", failed), ""}
	fmt.Fprintln(out, renderTable(
		[]string{"Project", "Run", "State", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		withFooter(footer),
	))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			fmt.Fprintln(out, renderStatusLine(outcome.Project, statusError, firstLine(outcome.Err.Error()), colorize))
		}
	}
}

type batchOutcome struct {
	Project    string         `json:"project"`
	Session    *sessionOutput `json:"session,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

func batchJSON(outcome workflow.Outcome) batchOutcome {
	out := batchOutcome{Project: outcome.Project, DurationMS: outcome.Duration.Milliseconds()}
	if outcome.Session.ID != "" {
		session := sessionJSON(outcome.Session)
		out.Session = &session
	}
	if outcome.Err != nil {
		out.Error = outcome.Err.Error()
	}
	return out
}
