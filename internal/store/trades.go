package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TradeRecord is one executed order in the append-only trade log.
// PnL stays nil until the position closes and SettleTrade fills it;
// that is the only mutation a trade row ever sees.
type TradeRecord struct {
	ID         uuid.UUID
	DecisionID *uuid.UUID
	Symbol     string
	Market     string
	Side       string
	Quantity   float64
	Price      float64
	Commission float64
	Status     string
	PnL        *float64
	ExecutedAt time.Time
	CreatedAt  time.Time
}

// InsertTrade appends a trade record.
func (s *Store) InsertTrade(ctx context.Context, trade *TradeRecord) error {
	query := `
		INSERT INTO trades (
			id, decision_id, symbol, market, side, quantity, price,
			commission, status, pnl, executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		trade.ID,
		trade.DecisionID,
		trade.Symbol,
		trade.Market,
		trade.Side,
		trade.Quantity,
		trade.Price,
		trade.Commission,
		trade.Status,
		trade.PnL,
		trade.ExecutedAt,
		trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	log.Debug().
		Str("trade_id", trade.ID.String()).
		Str("symbol", trade.Symbol).
		Str("side", trade.Side).
		Float64("quantity", trade.Quantity).
		Msg("Trade recorded")

	return nil
}

// SettleTrade fills the realized pnl of a trade when its position
// closes.
func (s *Store) SettleTrade(ctx context.Context, id uuid.UUID, pnl float64) error {
	query := `UPDATE trades SET pnl = $1, status = 'settled' WHERE id = $2`

	tag, err := s.pool.Exec(ctx, query, pnl, id)
	if err != nil {
		return fmt.Errorf("failed to settle trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade not found: %s", id)
	}

	log.Debug().
		Str("trade_id", id.String()).
		Float64("pnl", pnl).
		Msg("Trade settled")

	return nil
}

// RecentTrades returns the most recent trades for a symbol, newest
// first.
func (s *Store) RecentTrades(ctx context.Context, symbol string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, decision_id, symbol, market, side, quantity, price,
		       commission, status, pnl, executed_at, created_at
		FROM trades
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.ID, &t.DecisionID, &t.Symbol, &t.Market, &t.Side,
			&t.Quantity, &t.Price, &t.Commission, &t.Status, &t.PnL,
			&t.ExecutedAt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}

	return trades, nil
}
