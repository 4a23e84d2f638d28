package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"threephase/internal/archive"
	"threephase/internal/config"
	"threephase/internal/grid"
	"threephase/internal/preflight"
	"threephase/internal/recipe"
	"threephase/internal/scene"
	"threephase/internal/textutil"
)

// recipeInputs are the flags shared by write and run.
type recipeInputs struct {
	scene      string
	weather    string
	points     string
	project    string
	target     string
	skyDensity int
	extra      []string
}

func (in *recipeInputs) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&in.scene, "scene", "", "Scene manifest (YAML)")
	flags.StringVar(&in.weather, "weather", "", "Weather file (.epw)")
	flags.StringVar(&in.points, "points", "", "Sensor points file (x y z [dx dy dz] per line)")
	flags.StringVarP(&in.project, "project", "n", "", "Project name (defaults to the scene file name)")
	flags.StringVarP(&in.target, "target", "t", "", "Output directory (defaults to paths.output_dir)")
	flags.IntVar(&in.skyDensity, "sky-density", 0, "Reinhart sky subdivision (defaults to recipe.sky_density)")
	flags.StringSliceVar(&in.extra, "rad", nil, "Additional Radiance scene files for both matrix stages")
	_ = cmd.MarkFlagRequired("scene")
	_ = cmd.MarkFlagRequired("weather")
	_ = cmd.MarkFlagRequired("points")
}

func (in *recipeInputs) projectName() string {
	if name := strings.TrimSpace(in.project); name != "" {
		return textutil.SanitizeFileName(name)
	}
	base := filepath.Base(in.scene)
	return textutil.SanitizeToken(strings.TrimSuffix(base, filepath.Ext(base)))
}

func (in *recipeInputs) build(cfg *config.Config, opts recipe.Options) (*recipe.Recipe, string, error) {
	surfaces, err := scene.LoadManifest(in.scene)
	if err != nil {
		return nil, "", err
	}
	density := in.skyDensity
	if density == 0 {
		density = cfg.Recipe.SkyDensity
	}
	for _, extra := range in.extra {
		abs, err := filepath.Abs(extra)
		if err != nil {
			return nil, "", fmt.Errorf("resolve %s: %w", extra, err)
		}
		opts.ExtraSceneFiles = append(opts.ExtraSceneFiles, abs)
	}
	r, err := recipe.FromPointsFile(in.weather, in.points, density, surfaces, opts)
	if err != nil {
		return nil, "", err
	}
	target := strings.TrimSpace(in.target)
	if target == "" {
		target = cfg.Paths.OutputDir
	}
	return r, target, nil
}

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var inputs recipeInputs
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write recipe files and the batch script without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := ctx.recipeOptions(cmd, false)
			if err != nil {
				return err
			}
			r, target, err := inputs.build(cfg, opts)
			if err != nil {
				return err
			}
			session, err := r.WriteFiles(cmd.Context(), target, inputs.projectName())
			if err != nil {
				return err
			}
			if err := saveSession(cmd.Context(), ctx, session); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, sessionJSON(session))
			}
			printSession(cmd.OutOrStdout(), session)
			return nil
		},
	}
	inputs.bind(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inputs recipeInputs
	var debug, importResults, archiveRun, skipChecks, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write recipe files and run the batch script",
		Long: "Write recipe files and run the batch script. The command blocks until the " +
			"engine finishes; a failed run leaves the recorded session in files_written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipChecks {
				if err := requirePreflight(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			opts, err := ctx.recipeOptions(cmd, debug)
			if err != nil {
				return err
			}
			r, target, err := inputs.build(cfg, opts)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			session, err := r.WriteFiles(cmd.Context(), target, inputs.projectName())
			if err != nil {
				return err
			}
			if err := st.SaveSession(cmd.Context(), session); err != nil {
				return err
			}
			calculated, err := r.Run(cmd.Context(), session, recipe.RunOptions{Debug: debug})
			if err != nil {
				if recErr := st.RecordFailure(context.WithoutCancel(cmd.Context()), session.ID, err); recErr != nil {
					err = errors.Join(err, recErr)
				}
				return err
			}
			if err := st.SaveSession(cmd.Context(), calculated); err != nil {
				return err
			}

			if importResults {
				if err := importSession(cmd.Context(), ctx, calculated, r.Grid()); err != nil {
					return err
				}
			}
			if archiveRun {
				uploader, err := newUploader(ctx)
				if err != nil {
					return err
				}
				if _, err := uploader.UploadSession(cmd.Context(), calculated); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, sessionJSON(calculated))
			}
			printSession(cmd.OutOrStdout(), calculated)
			return nil
		},
	}
	inputs.bind(cmd)
	cmd.Flags().BoolVar(&debug, "debug", false, "Append a pause to the script so the terminal stays open")
	cmd.Flags().BoolVar(&importResults, "import", false, "Import the results into the run database")
	cmd.Flags().BoolVar(&archiveRun, "archive", false, "Upload the run directory to the configured archive")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func saveSession(ctx context.Context, cmdCtx *commandContext, session recipe.Session) error {
	st, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	return st.SaveSession(ctx, session)
}

func importSession(ctx context.Context, cmdCtx *commandContext, session recipe.Session, g *grid.Grid) error {
	st, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	if g == nil {
		g, err = grid.ParseFile(session.Paths.Points)
		if err != nil {
			return err
		}
	}
	matrix, err := recipe.LoadResults(session)
	if err != nil {
		return err
	}
	return st.ImportResults(ctx, session.ID, g, matrix)
}

func newUploader(cmdCtx *commandContext) (*archive.Uploader, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Archive.Enabled {
		return nil, errors.New("archive is disabled; set [archive] enabled = true")
	}
	archiveCfg := archive.FromConfig(cfg.Archive)
	objectStore, err := archive.NewMinioStore(archiveCfg)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return archive.NewUploader(archiveCfg, objectStore, cmdCtx.log())
}

func requirePreflight(ctx context.Context, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return fmt.Errorf("preflight failed (use --skip-checks to override):\n  %s", strings.Join(parts, "\n  "))
}

type sessionOutput struct {
	ID         string   `json:"id"`
	Project    string   `json:"project"`
	State      string   `json:"state"`
	Directory  string   `json:"directory"`
	Script     string   `json:"script"`
	SkyVector  string   `json:"sky_vector"`
	ResultFile string   `json:"result_file,omitempty"`
	ExitCode   int      `json:"exit_code"`
	Stages     []string `json:"stages"`
}

func sessionJSON(session recipe.Session) sessionOutput {
	return sessionOutput{
		ID:         session.ID,
		Project:    session.Project,
		State:      session.State.String(),
		Directory:  session.Paths.Dir,
		Script:     session.Script,
		SkyVector:  session.SkyVector,
		ResultFile: session.ResultFile,
		ExitCode:   session.ExitCode,
		Stages:     session.Stages,
	}
}

func printSession(out io.Writer, session recipe.Session) {
	fmt.Fprintf(out, "Run:       %s\n", session.ID)
	fmt.Fprintf(out, "Project:   %s\n", session.Project)
	fmt.Fprintf(out, "State:     %s\n", textutil.DisplayName(session.State.String()))
	fmt.Fprintf(out, "Directory: %s\n", session.Paths.Dir)
	fmt.Fprintf(out, "Script:    %s\n", session.Script)
	if session.ResultFile != "" {
		fmt.Fprintf(out, "Results:   %s\n", session.ResultFile)
	}
	if session.ExitCode != 0 {
		fmt.Fprintf(out, "Exit code: %d (tolerated)\n", session.ExitCode)
	}
	fmt.Fprintln(out, "Stages:")
	for i, line := range session.Stages {
		fmt.Fprintf(out, "  %d. %s\n", i+1, line)
	}
}
