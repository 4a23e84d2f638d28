package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"threephase/internal/fileutil"
	"threephase/internal/grid"
	"threephase/internal/logging"
	"threephase/internal/rad"
	"threephase/internal/results"
	"threephase/internal/services"
	"threephase/internal/services/engine"
)

// State is the lifecycle position of a recipe run.
type State int

const (
	Built State = iota
	FilesWritten
	Calculated
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case FilesWritten:
		return "files_written"
	case Calculated:
		return "calculated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState converts the String form back into a State.
func ParseState(value string) (State, error) {
	switch value {
	case "built":
		return Built, nil
	case "files_written":
		return FilesWritten, nil
	case "calculated":
		return Calculated, nil
	default:
		return Built, services.Wrap(services.ErrState, "recipe", "parse state", fmt.Sprintf("unknown state %q", value), nil)
	}
}

// Session carries the state of one recipe run between calls.
type Session struct {
	ID         string
	Project    string
	State      State
	Paths      ArtifactPaths
	SkyVector  string
	Script     string
	Stages     []string
	ResultFile string
	// ExitCode is the script's exit status when it was tolerated.
	ExitCode     int
	WrittenAt    time.Time
	CalculatedAt time.Time
}

// RunOptions tunes a single Run call.
type RunOptions struct {
	// Debug appends a pause line to the script before running it.
	Debug bool
}

// WriteFiles writes every artifact and the batch script to
// <target>/<project>/<sub folder>/ and returns a FilesWritten session.
func (r *Recipe) WriteFiles(ctx context.Context, target, project string) (Session, error) {
	paths, err := NewArtifactPaths(target, project, r.opts.SubFolder)
	if err != nil {
		return Session{}, err
	}
	session := Session{ID: uuid.NewString(), Project: paths.Project, State: Built, Paths: paths}
	ctx = services.WithProject(services.WithRunID(ctx, session.ID), paths.Project)
	logger := logging.WithContext(ctx, r.logger)

	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return session, services.Wrap(services.ErrDirectory, "recipe", "write files", "create "+paths.Dir, err)
	}
	lock, err := lockDirectory(paths)
	if err != nil {
		return session, err
	}
	defer unlock(lock, logger)

	if err := r.grid.WriteFile(paths.Points); err != nil {
		return session, err
	}
	matFile, geoFile, err := r.opts.Exporter.Export(paths.Dir, paths.Project, r.surfaces)
	if err != nil {
		return session, fmt.Errorf("export scene: %w", err)
	}

	xform, transmission, err := WriteAperture(r.aperture, paths)
	if err != nil {
		return session, err
	}
	controls, err := DeriveControl(r.aperture.Surface.Material, r.opts.Hemisphere, r.opts.Up)
	if err != nil {
		return session, err
	}
	if err := rad.AddControlParameters(paths.Aperture, paths.ApertureReceiver, controls); err != nil {
		return session, err
	}
	sender := rad.ControlParameters{Hemisphere: r.opts.Hemisphere, Up: r.opts.Up}
	if err := rad.WriteSender(paths.InvertedSender, sender, paths.Rel(paths.InvertedAperture)); err != nil {
		return session, err
	}
	if err := rad.WriteSkyHemisphere(paths.SkyHemisphere, rad.HemisphereType(r.sky.SkyType())); err != nil {
		return session, err
	}

	skyVector, err := r.sky.Execute(ctx, paths.Dir)
	if err != nil {
		return session, fmt.Errorf("generate sky vector: %w", err)
	}

	reuse := r.opts.ReuseDaylightMatrix && fileutil.Exists(paths.DaylightMatrix)
	if reuse {
		logger.Info("reusing daylight matrix", logging.String("path", paths.DaylightMatrix))
	}
	sceneFiles := []string{paths.Rel(matFile), paths.Rel(geoFile)}
	sceneFiles = append(sceneFiles, r.opts.ExtraSceneFiles...)
	sceneFiles = append(sceneFiles, paths.Rel(paths.Aperture))

	stages := BuildStages(StageInputs{
		PointsFile:       paths.Rel(paths.Points),
		SceneFiles:       sceneFiles,
		ApertureReceiver: paths.Rel(paths.ApertureReceiver),
		InvertedAperture: paths.Rel(paths.InvertedAperture),
		InvertedSender:   paths.Rel(paths.InvertedSender),
		SkyHemisphere:    paths.Rel(paths.SkyHemisphere),
		Transmission:     transmission,
		SkyVector:        paths.Rel(skyVector),
		ViewMatrix:       paths.Rel(paths.ViewMatrix),
		DaylightMatrix:   paths.Rel(paths.DaylightMatrix),
		Result:           paths.Rel(paths.Result),
		SamplingRays:     r.opts.SamplingRays,
		ViewParams:       r.opts.ViewParams,
		DaylightParams:   r.opts.DaylightParams,
		SkipDaylight:     reuse,
	})
	script, err := AssembleScript(r.opts.Environment, paths.Dir, append([]rad.Command{xform}, stages...))
	if err != nil {
		return session, err
	}
	if err := script.Write(paths.Script); err != nil {
		return session, err
	}

	session.State = FilesWritten
	session.SkyVector = skyVector
	session.Script = paths.Script
	session.Stages = script.StageLines()
	session.WrittenAt = time.Now().UTC()
	logger.Info("recipe files written",
		logging.String(logging.FieldEventType, "files_written"),
		logging.String("dir", paths.Dir),
		logging.Int("sensors", r.grid.Len()),
		logging.Int("stages", script.Stages),
	)
	return session, nil
}

// Run executes the session's batch script and blocks until it returns. On
// failure the input session is returned unchanged so the run can be retried.
func (r *Recipe) Run(ctx context.Context, session Session, opts RunOptions) (Session, error) {
	if session.State < FilesWritten || session.Script == "" {
		return session, services.Wrap(services.ErrState, "recipe", "run",
			fmt.Sprintf("recipe is %s; write files before running", session.State), services.ErrExecution)
	}
	if r.opts.Runner == nil {
		return session, services.Wrap(services.ErrExecution, "recipe", "run", "no runner configured", nil)
	}
	if !fileutil.Exists(session.Script) {
		return session, services.Wrap(services.ErrExecution, "recipe", "run", "batch script missing: "+session.Script, nil)
	}
	ctx = services.WithProject(services.WithRunID(ctx, session.ID), session.Project)
	logger := logging.WithContext(ctx, r.logger)

	lock, err := lockDirectory(session.Paths)
	if err != nil {
		return session, err
	}
	defer unlock(lock, logger)

	if opts.Debug {
		if err := appendPause(session.Script); err != nil {
			return session, err
		}
	}

	started := time.Now()
	logger.Info("running recipe", logging.String("script", session.Script))
	runErr := r.opts.Runner.RunScript(ctx, r.opts.Shell, session.Script)

	next := session
	next.ExitCode = 0
	if runErr != nil {
		var exitErr *engine.ExitError
		if !errors.As(runErr, &exitErr) || !r.opts.TolerateExitStatus {
			logger.Error("recipe run failed",
				logging.String(logging.FieldEventType, "run_failed"),
				logging.Error(runErr),
			)
			return session, fmt.Errorf("run %s: %w", session.Script, runErr)
		}
		logger.Warn("batch script exited non-zero; marking calculated",
			logging.Int("exit_code", exitErr.Code),
		)
		next.ExitCode = exitErr.Code
	}

	next.State = Calculated
	next.ResultFile = session.Paths.Result
	next.CalculatedAt = time.Now().UTC()
	logger.Info("recipe calculated",
		logging.String(logging.FieldEventType, "calculated"),
		logging.String("result", next.ResultFile),
		logging.Duration("elapsed", time.Since(started)),
	)
	return next, nil
}

// Results opens the result matrix of a calculated session. The matrix must
// have one row per sensor of the recipe's grid.
func (r *Recipe) Results(session Session) (*results.Matrix, error) {
	return loadResults(session, r.grid.Len())
}

// LoadResults opens the result matrix of a calculated session without a
// Recipe, for sessions restored from the run store. The row count is checked
// against the points file written with the session.
func LoadResults(session Session) (*results.Matrix, error) {
	if err := requireCalculated(session); err != nil {
		return nil, err
	}
	if session.Paths.Points == "" {
		return loadResults(session, -1)
	}
	g, err := grid.ParseFile(session.Paths.Points)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "recipe", "results", "read sensor points", err)
	}
	return loadResults(session, g.Len())
}

func requireCalculated(session Session) error {
	if session.State != Calculated || session.ResultFile == "" {
		return services.Wrap(services.ErrState, "recipe", "results",
			fmt.Sprintf("recipe is %s; run it before loading results", session.State), nil)
	}
	return nil
}

// loadResults opens the result file; a negative sensors skips the row check.
func loadResults(session Session, sensors int) (*results.Matrix, error) {
	if err := requireCalculated(session); err != nil {
		return nil, err
	}
	m, err := results.Open(session.ResultFile)
	if err != nil {
		return nil, err
	}
	if sensors >= 0 && m.Sensors() != sensors {
		return nil, services.Wrap(services.ErrValidation, "recipe", "results",
			fmt.Sprintf("%s has %d rows for %d sensors", session.ResultFile, m.Sensors(), sensors), nil)
	}
	return m, nil
}

func lockDirectory(paths ArtifactPaths) (*flock.Flock, error) {
	lock := flock.New(paths.Lock)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrDirectory, "recipe", "lock", paths.Lock, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrDirectory, "recipe", "lock", paths.Dir+" is in use by another run", nil)
	}
	return lock, nil
}

func unlock(lock *flock.Flock, logger *slog.Logger) {
	if err := lock.Unlock(); err != nil {
		logger.Warn("failed to release directory lock", logging.Error(err))
	}
}
