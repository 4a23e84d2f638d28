package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"threephase/internal/store"
	"threephase/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [project...]",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			runs, err := st.List(cmd.Context(), limit, args...)
			if err != nil {
				return err
			}
			if jsonOutput {
				out := make([]runOutput, 0, len(runs))
				for _, run := range runs {
					out = append(out, runJSON(run))
				}
				return writeJSON(cmd, out)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				state := textutil.DisplayName(run.State.String())
				state = colorizeText(state, statusKindColor(runStateKind(run.State, run.ExitCode, run.ErrorMessage)), colorize)
				exit := "-"
				if run.ExitCode != 0 {
					exit = strconv.Itoa(run.ExitCode)
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.Project,
					state,
					exit,
					formatTime(run.UpdatedAt),
					run.Directory,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Project", "State", "Exit", "Updated", "Directory"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			for _, run := range runs {
				if run.ErrorMessage != "" {
					fmt.Fprintln(out, renderStatusLine(shortID(run.ID), statusError, firstLine(run.ErrorMessage), colorize))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type runOutput struct {
	ID           string `json:"id"`
	Project      string `json:"project"`
	State        string `json:"state"`
	Directory    string `json:"directory"`
	ExitCode     int    `json:"exit_code"`
	ErrorMessage string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	CalculatedAt string `json:"calculated_at,omitempty"`
}

func runJSON(run *store.Run) runOutput {
	out := runOutput{
		ID:           run.ID,
		Project:      run.Project,
		State:        run.State.String(),
		Directory:    run.Directory,
		ExitCode:     run.ExitCode,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    run.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if !run.CalculatedAt.IsZero() {
		out.CalculatedAt = run.CalculatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

func firstLine(value string) string {
	line, _, _ := strings.Cut(value, "\n")
	return line
}
