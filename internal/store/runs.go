package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"threephase/internal/recipe"
	"threephase/internal/services"
	"threephase/internal/services/engine"
)

// Run is the persisted record of a recipe session.
type Run struct {
	ID           string
	Project      string
	Directory    string
	State        recipe.State
	Script       string
	SkyVector    string
	ResultFile   string
	Stages       []string
	ExitCode     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	WrittenAt    time.Time
	CalculatedAt time.Time
}

// Session rebuilds the recipe session the run was saved from.
func (r *Run) Session() (recipe.Session, error) {
	paths, err := recipe.ArtifactPathsIn(r.Directory, r.Project)
	if err != nil {
		return recipe.Session{}, err
	}
	return recipe.Session{
		ID:           r.ID,
		Project:      r.Project,
		State:        r.State,
		Paths:        paths,
		SkyVector:    r.SkyVector,
		Script:       r.Script,
		Stages:       append([]string(nil), r.Stages...),
		ResultFile:   r.ResultFile,
		ExitCode:     r.ExitCode,
		WrittenAt:    r.WrittenAt,
		CalculatedAt: r.CalculatedAt,
	}, nil
}

// validTransition reports whether a run may move from one state to another.
// Rewriting files is allowed from any written state.
func validTransition(from, to recipe.State) bool {
	switch {
	case to == from+1:
		return true
	case to == recipe.FilesWritten && from >= recipe.FilesWritten:
		return true
	}
	return false
}

func transitionError(id string, from, to recipe.State) error {
	return services.Wrap(services.ErrState, "store", "transition",
		fmt.Sprintf("run %s cannot move from %s to %s", id, from, to), nil)
}

// SaveSession inserts or updates the run for session. An existing run only
// accepts a session whose state follows from the stored one.
func (s *Store) SaveSession(ctx context.Context, session recipe.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return services.Wrap(services.ErrState, "store", "save session", "session has no run id", nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var stored string
		err := tx.QueryRowContext(ctx, `SELECT state FROM runs WHERE id = ?`, session.ID).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO runs (
                    id, project, directory, state, script, sky_vector, result_file, stages,
                    exit_code, created_at, updated_at, written_at, calculated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				session.ID,
				session.Project,
				session.Paths.Dir,
				session.State.String(),
				nullableString(session.Script),
				nullableString(session.SkyVector),
				nullableString(session.ResultFile),
				nullableString(strings.Join(session.Stages, "\n")),
				session.ExitCode,
				now,
				now,
				nullableTime(session.WrittenAt),
				nullableTime(session.CalculatedAt),
			)
			if err != nil {
				return fmt.Errorf("insert run: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("read run state: %w", err)
		}

		from, err := recipe.ParseState(stored)
		if err != nil {
			return err
		}
		if from != session.State && !validTransition(from, session.State) {
			return transitionError(session.ID, from, session.State)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE runs SET
                state = ?, script = ?, sky_vector = ?, result_file = ?, stages = ?,
                exit_code = ?, error_message = NULL, updated_at = ?, written_at = ?, calculated_at = ?
            WHERE id = ?`,
			session.State.String(),
			nullableString(session.Script),
			nullableString(session.SkyVector),
			nullableString(session.ResultFile),
			nullableString(strings.Join(session.Stages, "\n")),
			session.ExitCode,
			now,
			nullableTime(session.WrittenAt),
			nullableTime(session.CalculatedAt),
			session.ID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		return nil
	})
}

// Transition moves a run from one state to the next. It fails with
// services.ErrState when the run is not in from or the move is not allowed.
func (s *Store) Transition(ctx context.Context, id string, from, to recipe.State) error {
	if !validTransition(from, to) {
		return transitionError(id, from, to)
	}
	now := time.Now().UTC()
	calculatedAt := any(nil)
	if to == recipe.Calculated {
		calculatedAt = now.Format(time.RFC3339Nano)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET state = ?, updated_at = ?, calculated_at = COALESCE(?, calculated_at)
         WHERE id = ? AND state = ?`,
		to.String(), now.Format(time.RFC3339Nano), calculatedAt, id, from.String(),
	)
	if err != nil {
		return fmt.Errorf("transition run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		run, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if run == nil {
			return services.Wrap(services.ErrState, "store", "transition", "unknown run "+id, nil)
		}
		return services.Wrap(services.ErrState, "store", "transition",
			fmt.Sprintf("run %s is %s, not %s", id, run.State, from), nil)
	}
	return nil
}

// RecordFailure stores the error of a failed run without changing its state.
func (s *Store) RecordFailure(ctx context.Context, id string, runErr error) error {
	if runErr == nil {
		return nil
	}
	code := 0
	var exitErr *engine.ExitError
	if errors.As(runErr, &exitErr) {
		code = exitErr.Code
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE runs SET error_message = ?, exit_code = ?, updated_at = ? WHERE id = ?`,
		runErr.Error(), code, time.Now().UTC().Format(time.RFC3339Nano), id,
	); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

const runColumns = "id, project, directory, state, script, sky_vector, result_file, stages, exit_code, error_message, created_at, updated_at, written_at, calculated_at"

// Get fetches a run by identifier. A missing run returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Latest returns the most recently created run of project, or nil.
func (s *Store) Latest(ctx context.Context, project string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE project = ? ORDER BY rowid DESC LIMIT 1`,
		project,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// List returns runs newest first, optionally restricted to projects.
func (s *Store) List(ctx context.Context, limit int, projects ...string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(projects)+1)
	if len(projects) > 0 {
		query += ` WHERE project IN (` + makePlaceholders(len(projects)) + `)`
		for _, project := range projects {
			args = append(args, project)
		}
	}
	query += ` ORDER BY rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Remove deletes a run with its sensors and results.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteResults(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run           Run
		stateStr      string
		script        sql.NullString
		skyVector     sql.NullString
		resultFile    sql.NullString
		stages        sql.NullString
		errorMessage  sql.NullString
		createdRaw    string
		updatedRaw    string
		writtenRaw    sql.NullString
		calculatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Project,
		&run.Directory,
		&stateStr,
		&script,
		&skyVector,
		&resultFile,
		&stages,
		&run.ExitCode,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&writtenRaw,
		&calculatedRaw,
	); err != nil {
		return nil, err
	}
	state, err := recipe.ParseState(stateStr)
	if err != nil {
		return nil, err
	}
	run.State = state
	run.Script = script.String
	run.SkyVector = skyVector.String
	run.ResultFile = resultFile.String
	if stages.String != "" {
		run.Stages = strings.Split(stages.String, "\n")
	}
	run.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdRaw); err == nil {
		run.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = t
	}
	if t, err := parseTimeString(writtenRaw.String); err == nil {
		run.WrittenAt = t
	}
	if t, err := parseTimeString(calculatedRaw.String); err == nil {
		run.CalculatedAt = t
	}
	return &run, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
