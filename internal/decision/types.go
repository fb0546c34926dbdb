// Package decision turns a market snapshot into a trade decision:
// sentiment and technical bias blended into a composite, thresholded
// into an action, optionally overridden by an external advisor.
package decision

import (
	"time"

	"github.com/google/uuid"
)

// Action is the trade direction a decision resolves to.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Side returns the order side for the action.
func (a Action) Side() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "hold"
	}
}

// OrderIntent is the order the execution layer would place for a
// decision. Qty stays 0 until the risk sizer fills it in.
type OrderIntent struct {
	Market     string  `json:"market"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Qty        float64 `json:"qty"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// Decision is one cycle's verdict for one symbol. Stop, target and
// size are pointers: nil means the risk layer has not produced them
// (HOLD decisions never carry them).
type Decision struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Action       Action      `json:"action"`
	Confidence   float64     `json:"confidence"`
	Reasoning    string      `json:"reasoning"`
	EntryPrice   float64     `json:"entry_price"`
	StopLoss     *float64    `json:"stop_loss,omitempty"`
	TakeProfit   *float64    `json:"take_profit,omitempty"`
	PositionSize *float64    `json:"position_size,omitempty"`
	Approved     bool        `json:"approved"`
	Order        OrderIntent `json:"order"`
	CreatedAt    time.Time   `json:"created_at"`
}

// newID issues decision identifiers.
func newID() string {
	return uuid.New().String()
}
