package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"threephase/internal/fileutil"
	"threephase/internal/recipe"
	"threephase/internal/results"
	"threephase/internal/store"
	"threephase/internal/textutil"
)

const defaultThreshold = 300

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "results <run-id|project>",
		Short: "Summarize the illuminance results of a calculated run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, session, err := resolveRun(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			matrix, err := recipe.LoadResults(session)
			if err != nil {
				return err
			}
			summaries, err := matrix.Summarize(threshold)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resultsJSON(run, matrix, threshold, summaries))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s): %s sensors x %s steps\n",
				shortID(run.ID), run.Project, formatCount(matrix.Sensors()), formatCount(matrix.Steps()))
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					strconv.Itoa(s.Sensor),
					formatLux(s.Min),
					formatLux(s.Max),
					formatLux(s.Mean),
					formatCount(s.StepsAbove),
				})
			}
			headers := []string{"Sensor", "Min (lx)", "Max (lx)", "Mean (lx)", fmt.Sprintf("Steps >= %s lx", formatLux(threshold))}
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", defaultThreshold, "Illuminance threshold in lux for the steps-above column")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newResultsSeriesCommand(ctx))
	cmd.AddCommand(newResultsImportCommand(ctx))
	cmd.AddCommand(newResultsExportCommand(ctx))
	return cmd
}

func newResultsSeriesCommand(ctx *commandContext) *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "series <run-id|project> <sensor>",
		Short: "Print one sensor's illuminance per time step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sensor, err := strconv.Atoi(args[1])
			if err != nil || sensor < 0 {
				return fmt.Errorf("invalid sensor index %q", args[1])
			}
			run, session, err := resolveRun(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if fromStore {
				st, err := ctx.openStore()
				if err != nil {
					return err
				}
				values, err := st.SensorSeries(cmd.Context(), run.ID, sensor)
				if err != nil {
					return err
				}
				if len(values) == 0 {
					return fmt.Errorf("no imported results for sensor %d of run %s; run `threephase results import` first", sensor, shortID(run.ID))
				}
				for step, value := range values {
					fmt.Fprintf(out, "%d\t%s\n", step, strconv.FormatFloat(value, 'f', -1, 64))
				}
				return nil
			}
			matrix, err := recipe.LoadResults(session)
			if err != nil {
				return err
			}
			if sensor >= matrix.Sensors() {
				return fmt.Errorf("sensor %d out of range (run has %d sensors)", sensor, matrix.Sensors())
			}
			step := 0
			for value := range matrix.Series(sensor) {
				fmt.Fprintf(out, "%d\t%s\n", step, strconv.FormatFloat(value, 'f', -1, 64))
				step++
			}
			return matrix.Err()
		},
	}
	cmd.Flags().BoolVar(&fromStore, "stored", false, "Read imported values from the run database")
	return cmd
}

func newResultsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <run-id|project>",
		Short: "Copy a run's results into the run database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, session, err := resolveRun(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			if err := importSession(cmd.Context(), ctx, session, nil); err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			count, err := st.ResultCount(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s values for run %s\n", formatCount(count), shortID(run.ID))
			return nil
		},
	}
}

func newResultsExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id|project> <destination>",
		Short: "Copy a run's result file with integrity verification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, session, err := resolveRun(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := recipe.LoadResults(session); err != nil {
				return err
			}
			dest := args[1]
			if info, err := os.Stat(dest); err == nil && info.IsDir() {
				name := textutil.SanitizeFileName(fmt.Sprintf("%s-%s.ill", run.Project, shortID(run.ID)))
				dest = filepath.Join(dest, name)
			}
			if err := fileutil.CopyFileVerified(session.ResultFile, dest); err != nil {
				return fmt.Errorf("export results: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", session.ResultFile, dest)
			return nil
		},
	}
}

// resolveRun finds a run by ID, then by project (latest run).
func resolveRun(ctx context.Context, cmdCtx *commandContext, ref string) (*store.Run, recipe.Session, error) {
	st, err := cmdCtx.openStore()
	if err != nil {
		return nil, recipe.Session{}, err
	}
	ref = strings.TrimSpace(ref)
	run, err := st.Get(ctx, ref)
	if err != nil {
		return nil, recipe.Session{}, err
	}
	if run == nil {
		run, err = st.Latest(ctx, ref)
		if err != nil {
			return nil, recipe.Session{}, err
		}
	}
	if run == nil {
		return nil, recipe.Session{}, fmt.Errorf("no run or project named %q", ref)
	}
	session, err := run.Session()
	if err != nil {
		return nil, recipe.Session{}, err
	}
	return run, session, nil
}

type resultsOutput struct {
	RunID     string                  `json:"run_id"`
	Project   string                  `json:"project"`
	File      string                  `json:"file"`
	Sensors   int                     `json:"sensors"`
	Steps     int                     `json:"steps"`
	Threshold float64                 `json:"threshold"`
	Summary   []results.SensorSummary `json:"summary"`
}

func resultsJSON(run *store.Run, matrix *results.Matrix, threshold float64, summaries []results.SensorSummary) resultsOutput {
	return resultsOutput{
		RunID:     run.ID,
		Project:   run.Project,
		File:      matrix.Path(),
		Sensors:   matrix.Sensors(),
		Steps:     matrix.Steps(),
		Threshold: threshold,
		Summary:   summaries,
	}
}
