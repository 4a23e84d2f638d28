package store

import (
	"context"
	"database/sql"
	"fmt"

	"threephase/internal/grid"
	"threephase/internal/recipe"
	"threephase/internal/results"
	"threephase/internal/services"
)

// ImportResults replaces the stored sensors and results of a calculated run
// with the contents of g and m. Rows of m follow the grid order.
func (s *Store) ImportResults(ctx context.Context, runID string, g *grid.Grid, m *results.Matrix) error {
	if g == nil || m == nil {
		return services.Wrap(services.ErrValidation, "store", "import results", "grid and matrix required", nil)
	}
	if m.Sensors() != g.Len() {
		return services.Wrap(services.ErrValidation, "store", "import results",
			fmt.Sprintf("matrix has %d sensors, grid has %d", m.Sensors(), g.Len()), nil)
	}
	run, err := s.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return services.Wrap(services.ErrState, "store", "import results", "unknown run "+runID, nil)
	}
	if run.State != recipe.Calculated {
		return services.Wrap(services.ErrState, "store", "import results",
			fmt.Sprintf("run %s is %s, not calculated", runID, run.State), nil)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteResults(ctx, tx, runID); err != nil {
			return err
		}
		sensorStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO sensors (run_id, idx, px, py, pz, vx, vy, vz) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare sensor insert: %w", err)
		}
		defer sensorStmt.Close()
		valueStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO results (run_id, sensor, hoy, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare result insert: %w", err)
		}
		defer valueStmt.Close()

		for i, sensor := range g.Sensors() {
			p, v := sensor.Position, sensor.Direction
			if _, err := sensorStmt.ExecContext(ctx, runID, i, p.X, p.Y, p.Z, v.X, v.Y, v.Z); err != nil {
				return fmt.Errorf("insert sensor %d: %w", i, err)
			}
			steps := 0
			for value := range m.Series(i) {
				if _, err := valueStmt.ExecContext(ctx, runID, i, steps, value); err != nil {
					return fmt.Errorf("insert result %d/%d: %w", i, steps, err)
				}
				steps++
			}
			if err := m.Err(); err != nil {
				return err
			}
			if steps != m.Steps() {
				return services.Wrap(services.ErrValidation, "store", "import results",
					fmt.Sprintf("sensor %d: read %d of %d values from %s", i, steps, m.Steps(), m.Path()), nil)
			}
		}
		return nil
	})
}

func deleteResults(ctx context.Context, tx *sql.Tx, runID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sensors WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete sensors: %w", err)
	}
	return nil
}

// Sensors returns the imported sensors of a run in grid order.
func (s *Store) Sensors(ctx context.Context, runID string) ([]grid.Sensor, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT px, py, pz, vx, vy, vz FROM sensors WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}
	defer rows.Close()

	var sensors []grid.Sensor
	for rows.Next() {
		var sensor grid.Sensor
		p, v := &sensor.Position, &sensor.Direction
		if err := rows.Scan(&p.X, &p.Y, &p.Z, &v.X, &v.Y, &v.Z); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		sensors = append(sensors, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensors: %w", err)
	}
	return sensors, nil
}

// SensorSeries returns the imported values of one sensor ordered by time
// step. An unknown run or sensor returns an empty series.
func (s *Store) SensorSeries(ctx context.Context, runID string, sensor int) ([]float64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT value FROM results WHERE run_id = ? AND sensor = ? ORDER BY hoy`, runID, sensor)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return values, nil
}

// ResultCount reports how many values are stored for a run.
func (s *Store) ResultCount(ctx context.Context, runID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM results WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}
