package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"threephase/internal/logging"
	"threephase/internal/recipe"
	"threephase/internal/services"
)

// Job is one recipe to write and run in <Target>/<Project>/.
type Job struct {
	Project string
	Target  string
	Recipe  *recipe.Recipe
	// WriteOnly stops after the files are written.
	WriteOnly bool
}

// Outcome is the result of one job. Session is the last session the job
// reached; Err is nil on success.
type Outcome struct {
	Project  string
	Session  recipe.Session
	Err      error
	Duration time.Duration
}

// SessionStore records session transitions. *store.Store satisfies it.
type SessionStore interface {
	SaveSession(ctx context.Context, session recipe.Session) error
	RecordFailure(ctx context.Context, id string, err error) error
}

// Manager runs batches of recipes.
type Manager struct {
	store       SessionStore
	logger      *slog.Logger
	parallelism int
	runOpts     recipe.RunOptions
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithStore records every session transition in st.
func WithStore(st SessionStore) ManagerOption {
	return func(m *Manager) {
		m.store = st
	}
}

// WithRunOptions passes opts to every recipe run.
func WithRunOptions(opts recipe.RunOptions) ManagerOption {
	return func(m *Manager) {
		m.runOpts = opts
	}
}

// NewManager constructs a manager running at most parallelism recipes at once.
func NewManager(parallelism int, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		logger:      logging.NewComponentLogger(logger, "workflow"),
		parallelism: parallelism,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunAll runs jobs and returns one outcome per job in input order. It fails
// before starting anything when two jobs share an output directory. The
// returned error joins the failures of individual jobs.
func (m *Manager) RunAll(ctx context.Context, jobs []Job) ([]Outcome, error) {
	if err := checkDistinct(jobs); err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, len(jobs))
	var mu sync.Mutex
	var failures []error

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.parallelism)
	for i, job := range jobs {
		group.Go(func() error {
			outcome := m.runJob(groupCtx, job)
			outcomes[i] = outcome
			if outcome.Err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", job.Project, outcome.Err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	m.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("jobs", len(jobs)),
		logging.Int("failed", len(failures)),
	)
	return outcomes, errors.Join(failures...)
}

// RunAll runs jobs with a default manager.
func RunAll(ctx context.Context, jobs []Job, parallelism int, opts ...ManagerOption) ([]Outcome, error) {
	return NewManager(parallelism, nil, opts...).RunAll(ctx, jobs)
}

func (m *Manager) runJob(ctx context.Context, job Job) Outcome {
	start := time.Now()
	outcome := Outcome{Project: job.Project}
	finish := func(err error) Outcome {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}
	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	session, err := job.Recipe.WriteFiles(ctx, job.Target, job.Project)
	if err != nil {
		return finish(err)
	}
	outcome.Session = session
	ctx = services.WithProject(services.WithRunID(ctx, session.ID), session.Project)
	logger := logging.WithContext(ctx, m.logger)
	if err := m.save(ctx, session); err != nil {
		return finish(err)
	}
	if job.WriteOnly {
		return finish(nil)
	}

	calculated, err := job.Recipe.Run(ctx, session, m.runOpts)
	if err != nil {
		if m.store != nil {
			if recErr := m.store.RecordFailure(ctx, session.ID, err); recErr != nil {
				logger.Warn("failed to record run failure", logging.Error(recErr))
			}
		}
		return finish(err)
	}
	outcome.Session = calculated
	if err := m.save(ctx, calculated); err != nil {
		return finish(err)
	}
	logger.Info("job finished",
		logging.String(logging.FieldEventType, "job_finished"),
		logging.Duration("duration", time.Since(start)),
	)
	return finish(nil)
}

func (m *Manager) save(ctx context.Context, session recipe.Session) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func checkDistinct(jobs []Job) error {
	seen := make(map[string]string, len(jobs))
	for _, job := range jobs {
		if job.Recipe == nil {
			return services.Wrap(services.ErrConfiguration, "workflow", "run all",
				fmt.Sprintf("job %q has no recipe", job.Project), nil)
		}
		paths, err := recipe.NewArtifactPaths(job.Target, job.Project, job.Recipe.Options().SubFolder)
		if err != nil {
			return err
		}
		if prev, dup := seen[paths.Dir]; dup {
			return services.Wrap(services.ErrConfiguration, "workflow", "run all",
				fmt.Sprintf("jobs %q and %q share output directory %s", prev, job.Project, paths.Dir), nil)
		}
		seen[paths.Dir] = job.Project
	}
	return nil
}
