package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thomasly/option-analysis/internal/analysis"
	"github.com/thomasly/option-analysis/internal/models"
)

// ErrRunNotFound is returned when no analysis run matches the query.
var ErrRunNotFound = errors.New("analysis run not found")

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// StoredComponent is one persisted frequency component of a run,
// tagged with the label of the decomposition it came from.
type StoredComponent struct {
	RunID     uuid.UUID `json:"run_id" db:"run_id"`
	Label     string    `json:"label" db:"label"`
	Bin       int       `json:"bin" db:"bin"`
	Frequency float64   `json:"frequency" db:"frequency"`
	Period    float64   `json:"period" db:"period"`
	Magnitude float64   `json:"magnitude" db:"magnitude"`
	Amplitude float64   `json:"amplitude" db:"amplitude"`
	Phase     float64   `json:"phase" db:"phase"`
}

// RunRepository handles database operations for analysis runs and
// their selected frequency components.
type RunRepository struct {
	pool DatabasePool
}

// NewRunRepository creates a new run repository.
func NewRunRepository(pool DatabasePool) *RunRepository {
	return &RunRepository{pool: pool}
}

// InsertRun records a freshly started run.
func (r *RunRepository) InsertRun(ctx context.Context, run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, symbol, frequency, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.Symbol, string(run.Frequency), string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

// FinishRun stores the terminal state of a run: status, any error
// fields, and the finish timestamp.
func (r *RunRepository) FinishRun(ctx context.Context, run *models.AnalysisRun) error {
	query := `
		UPDATE analysis_runs
		SET status = $2, error_kind = $3, error_param = $4, error_detail = $5, finished_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.ErrorKind, run.ErrorParam, run.ErrorDetail, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to finish analysis run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun fetches one run by ID.
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	query := `
		SELECT id, symbol, frequency, status, error_kind, error_param, error_detail, started_at, finished_at
		FROM analysis_runs
		WHERE id = $1
	`

	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// LatestRun fetches the most recently started run for a symbol and
// frequency, regardless of outcome.
func (r *RunRepository) LatestRun(ctx context.Context, symbol string, freq models.Frequency) (*models.AnalysisRun, error) {
	query := `
		SELECT id, symbol, frequency, status, error_kind, error_param, error_detail, started_at, finished_at
		FROM analysis_runs
		WHERE symbol = $1 AND frequency = $2
		ORDER BY started_at DESC
		LIMIT 1
	`

	return r.scanRun(r.pool.QueryRow(ctx, query, symbol, string(freq)))
}

// ListRecentRuns returns up to limit runs, newest first.
func (r *RunRepository) ListRecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	query := `
		SELECT id, symbol, frequency, status, error_kind, error_param, error_detail, started_at, finished_at
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var run models.AnalysisRun
		if err := rows.Scan(
			&run.ID, &run.Symbol, &run.Frequency, &run.Status,
			&run.ErrorKind, &run.ErrorParam, &run.ErrorDetail,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analysis runs: %w", err)
	}
	return runs, nil
}

// SaveComponents persists the selected frequency components of one
// decomposition under its label.
func (r *RunRepository) SaveComponents(ctx context.Context, runID uuid.UUID, label string, components []analysis.FrequencyComponent) error {
	query := `
		INSERT INTO run_components (run_id, label, bin, frequency, period, magnitude, amplitude, phase)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, c := range components {
		if _, err := r.pool.Exec(ctx, query,
			runID, label, c.Bin, c.Frequency, c.Period, c.Magnitude, c.Amplitude, c.Phase); err != nil {
			return fmt.Errorf("failed to save component for run %s: %w", runID, err)
		}
	}
	return nil
}

// ComponentsForRun returns a run's persisted components ordered by
// label, then descending magnitude.
func (r *RunRepository) ComponentsForRun(ctx context.Context, runID uuid.UUID) ([]StoredComponent, error) {
	query := `
		SELECT run_id, label, bin, frequency, period, magnitude, amplitude, phase
		FROM run_components
		WHERE run_id = $1
		ORDER BY label, magnitude DESC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run components: %w", err)
	}
	defer rows.Close()

	var components []StoredComponent
	for rows.Next() {
		var c StoredComponent
		if err := rows.Scan(
			&c.RunID, &c.Label, &c.Bin, &c.Frequency,
			&c.Period, &c.Magnitude, &c.Amplitude, &c.Phase,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run component: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run components: %w", err)
	}
	return components, nil
}

func (r *RunRepository) scanRun(row pgx.Row) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := row.Scan(
		&run.ID, &run.Symbol, &run.Frequency, &run.Status,
		&run.ErrorKind, &run.ErrorParam, &run.ErrorDetail,
		&run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis run: %w", err)
	}
	return &run, nil
}
