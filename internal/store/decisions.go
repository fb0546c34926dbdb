package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/AustinJR6/LysaraInvestments/internal/decision"
)

// ErrDecisionNotFound is returned when a decision ID has no row.
var ErrDecisionNotFound = errors.New("decision not found")

// InsertDecision appends a decision audit record. details carries the
// snapshot fields the decision was made from.
func (s *Store) InsertDecision(ctx context.Context, d decision.Decision, details map[string]interface{}) error {
	query := `
		INSERT INTO decisions (
			id, symbol, action, confidence, reasoning, entry_price,
			stop_loss, take_profit, position_size, approved, context, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		d.ID,
		d.Symbol,
		string(d.Action),
		d.Confidence,
		d.Reasoning,
		d.EntryPrice,
		d.StopLoss,
		d.TakeProfit,
		d.PositionSize,
		d.Approved,
		details,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	log.Debug().
		Str("decision_id", d.ID).
		Str("symbol", d.Symbol).
		Str("action", string(d.Action)).
		Msg("Decision recorded")

	return nil
}

// GetDecision reads a decision back by ID.
func (s *Store) GetDecision(ctx context.Context, id string) (*decision.Decision, error) {
	query := `
		SELECT id, symbol, action, confidence, reasoning, entry_price,
		       stop_loss, take_profit, position_size, approved, created_at
		FROM decisions
		WHERE id = $1
	`

	var d decision.Decision
	var action string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Symbol,
		&action,
		&d.Confidence,
		&d.Reasoning,
		&d.EntryPrice,
		&d.StopLoss,
		&d.TakeProfit,
		&d.PositionSize,
		&d.Approved,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	d.Action = decision.Action(action)

	return &d, nil
}
