package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/search"
)

const runColumns = `id, status, granularity, fund_count, blend_mode, assets, candidates,
	degenerate, best_index, allocation, frontier, duration_ms, created_at`

// Repository persists runs in the runs database.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Save stores a run and its full statistics in one transaction.
func (r *Repository) Save(ctx context.Context, run *Run, stats *search.Statistics) error {
	assets, err := json.Marshal(run.Assets)
	if err != nil {
		return fmt.Errorf("failed to marshal assets: %w", err)
	}
	alloc, err := json.Marshal(run.Allocation)
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}
	hull, err := json.Marshal(run.Frontier)
	if err != nil {
		return fmt.Errorf("failed to marshal frontier: %w", err)
	}
	payload, err := msgpack.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}

	err = database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Status, run.Granularity, run.FundCount, run.BlendMode,
			string(assets), run.Candidates, run.Degenerate, run.BestIndex, string(alloc), string(hull),
			run.DurationMs, run.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_statistics (run_id, payload) VALUES (?, ?)`, run.ID, payload)
		if err != nil {
			return fmt.Errorf("failed to insert statistics: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Int("statistics_bytes", len(payload)).
		Msg("Run saved")
	return nil
}

// Get returns a run by id
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}

// GetStatistics decodes the stored statistics of a run.
func (r *Repository) GetStatistics(ctx context.Context, id string) (*search.Statistics, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM run_statistics WHERE run_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("statistics for run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}

	var stats search.Statistics
	if err := msgpack.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}
	return &stats, nil
}

// Delete removes a run and its statistics
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Count returns the number of stored runs
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                 Run
		assets, alloc, hull string
		createdAt           int64
	)
	err := row.Scan(&run.ID, &run.Status, &run.Granularity, &run.FundCount, &run.BlendMode,
		&assets, &run.Candidates, &run.Degenerate, &run.BestIndex, &alloc, &hull, &run.DurationMs, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(assets), &run.Assets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assets: %w", err)
	}
	if err := json.Unmarshal([]byte(alloc), &run.Allocation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocation: %w", err)
	}
	if err := json.Unmarshal([]byte(hull), &run.Frontier); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frontier: %w", err)
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &run, nil
}
