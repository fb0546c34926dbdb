package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FeeConfig holds the simulated fee and slippage model.
type FeeConfig struct {
	Maker        float64 // Maker fee percentage
	Taker        float64 // Taker fee percentage
	BaseSlippage float64 // Base slippage percentage
	MarketImpact float64 // Market impact per million USD of order size
	MaxSlippage  float64 // Maximum slippage percentage
}

// DefaultFeeConfig returns Binance-like fees.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		Maker:        0.001,  // 0.1%
		Taker:        0.001,  // 0.1%
		BaseSlippage: 0.0005, // 0.05%
		MarketImpact: 0.0001, // 0.01%
		MaxSlippage:  0.003,  // 0.3%
	}
}

// PaperExchange simulates a trading venue for paper trading: orders
// fill immediately at the stored market price plus slippage, fees come
// out of the simulated balance, and nothing leaves the process.
type PaperExchange struct {
	mu sync.RWMutex

	balance      float64
	orders       map[string]*Order
	marketPrices map[string]float64
	fees         FeeConfig
}

// NewPaperExchange creates a paper exchange seeded with the starting
// balance and default fees.
func NewPaperExchange(initialBalance float64) *PaperExchange {
	return NewPaperExchangeWithFees(initialBalance, DefaultFeeConfig())
}

// NewPaperExchangeWithFees creates a paper exchange with a custom fee
// model.
func NewPaperExchangeWithFees(initialBalance float64, fees FeeConfig) *PaperExchange {
	log.Info().
		Float64("balance", initialBalance).
		Float64("maker_fee", fees.Maker).
		Float64("taker_fee", fees.Taker).
		Float64("base_slippage", fees.BaseSlippage).
		Msg("Paper exchange initialized (paper trading mode)")

	return &PaperExchange{
		balance:      initialBalance,
		orders:       make(map[string]*Order),
		marketPrices: make(map[string]float64),
		fees:         fees,
	}
}

// FetchAccountInfo returns the simulated balance.
func (p *PaperExchange) FetchAccountInfo(_ context.Context) (*AccountInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &AccountInfo{Balance: p.balance, Currency: "USD"}, nil
}

// FetchMarketPrice returns the stored price for a symbol.
func (p *PaperExchange) FetchMarketPrice(_ context.Context, symbol string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	price, ok := p.marketPrices[symbol]
	if !ok {
		return 0, NewAPIError(KindValidation, 0, fmt.Sprintf("no market price for symbol %s", symbol), nil)
	}
	return price, nil
}

// SetMarketPrice sets the current market price for a symbol. Feeds and
// tests drive the simulation through this.
func (p *PaperExchange) SetMarketPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.marketPrices[symbol] = price
}

// ApplyPnL settles realized profit or loss into the simulated balance.
func (p *PaperExchange) ApplyPnL(pnl float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.balance += pnl
}

// PlaceOrder fills the order immediately against the stored market
// price with slippage and taker fees applied.
func (p *PaperExchange) PlaceOrder(_ context.Context, req OrderRequest) (*OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateOrder(req); err != nil {
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Msg("Order validation failed")
		return nil, err
	}

	midPrice, ok := p.marketPrices[req.Symbol]
	if !ok {
		if req.Price > 0 {
			midPrice = req.Price
		} else {
			return nil, NewAPIError(KindValidation, 0, fmt.Sprintf("no market price for symbol %s", req.Symbol), nil)
		}
	}

	slippage := p.calculateSlippage(req.Quantity, midPrice)
	fillPrice := midPrice * (1 + slippage)
	if req.Side == OrderSideSell {
		fillPrice = midPrice * (1 - slippage)
	}

	commission := fillPrice * req.Quantity * p.fees.Taker
	if req.Type == OrderTypeLimit {
		commission = fillPrice * req.Quantity * p.fees.Maker
	}
	if commission > p.balance {
		return nil, NewAPIError(KindInsufficientFunds, 0, "insufficient balance for fees", nil)
	}
	p.balance -= commission

	now := time.Now()
	order := &Order{
		ID:           uuid.New().String(),
		Symbol:       req.Symbol,
		Side:         req.Side,
		Type:         req.Type,
		Quantity:     req.Quantity,
		Price:        req.Price,
		FilledQty:    req.Quantity,
		AvgFillPrice: fillPrice,
		Commission:   commission,
		Status:       OrderStatusFilled,
		CreatedAt:    now,
		UpdatedAt:    now,
		FilledAt:     &now,
	}
	p.orders[order.ID] = order

	log.Info().
		Str("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("quantity", order.Quantity).
		Float64("fill_price", fillPrice).
		Float64("slippage_pct", slippage*100).
		Float64("commission", commission).
		Msg("Order filled")

	return &OrderResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		FilledQty:    order.FilledQty,
		AvgFillPrice: order.AvgFillPrice,
		Message:      "Order filled",
	}, nil
}

// CancelOrder cancels an open order. Paper fills are immediate, so
// this only ever succeeds for orders that were never filled.
func (p *PaperExchange) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, exists := p.orders[orderID]
	if !exists {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("order not found: %s", orderID), nil)
	}
	if order.Status != OrderStatusOpen && order.Status != OrderStatusPending {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("cannot cancel order in status: %s", order.Status), nil)
	}

	order.Status = OrderStatusCancelled
	order.UpdatedAt = time.Now()

	log.Info().
		Str("order_id", orderID).
		Msg("Order cancelled")

	return nil
}

// GetOrder retrieves a stored order.
func (p *PaperExchange) GetOrder(orderID string) (*Order, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order, ok := p.orders[orderID]
	return order, ok
}

// calculateSlippage scales slippage with order size: base plus market
// impact per million USD of notional, capped.
func (p *PaperExchange) calculateSlippage(quantity, price float64) float64 {
	orderSize := quantity * price
	normalizedSize := orderSize / 1000000.0

	totalSlippage := p.fees.BaseSlippage + p.fees.MarketImpact*normalizedSize
	if totalSlippage > p.fees.MaxSlippage {
		totalSlippage = p.fees.MaxSlippage
	}
	return totalSlippage
}

// validateOrder checks order parameters shared by both venues.
func validateOrder(req OrderRequest) error {
	if req.Symbol == "" {
		return NewAPIError(KindValidation, 0, "symbol is required", nil)
	}
	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("invalid order side: %s", req.Side), nil)
	}
	if req.Type != OrderTypeMarket && req.Type != OrderTypeLimit {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("invalid order type: %s", req.Type), nil)
	}
	if req.Quantity <= 0 {
		return NewAPIError(KindValidation, 0, "quantity must be positive", nil)
	}
	if req.Type == OrderTypeLimit && req.Price <= 0 {
		return NewAPIError(KindValidation, 0, "limit orders must have a positive price", nil)
	}
	return nil
}
