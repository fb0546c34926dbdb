package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoEquitySnapshots is returned when no equity has been recorded.
var ErrNoEquitySnapshots = errors.New("no equity snapshots recorded")

// InsertEquitySnapshot records the account equity observed during a
// refresh.
func (s *Store) InsertEquitySnapshot(ctx context.Context, equity float64, market string) error {
	query := `INSERT INTO equity_snapshots (equity, market) VALUES ($1, $2)`

	if _, err := s.pool.Exec(ctx, query, equity, market); err != nil {
		return fmt.Errorf("failed to insert equity snapshot: %w", err)
	}
	return nil
}

// LatestEquity returns the most recently recorded equity.
func (s *Store) LatestEquity(ctx context.Context) (float64, error) {
	query := `SELECT equity FROM equity_snapshots ORDER BY recorded_at DESC, id DESC LIMIT 1`

	var equity float64
	err := s.pool.QueryRow(ctx, query).Scan(&equity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoEquitySnapshots
		}
		return 0, fmt.Errorf("failed to get latest equity: %w", err)
	}
	return equity, nil
}
