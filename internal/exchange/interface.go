// Package exchange defines the trading venue contract and its two
// implementations: a simulated paper venue and a Binance adapter.
package exchange

import "context"

// Exchange is the venue contract the execution layer depends on.
// PaperExchange (simulated fills) and BinanceExchange (live) both
// implement it.
type Exchange interface {
	// FetchAccountInfo returns the current account balance.
	FetchAccountInfo(ctx context.Context) (*AccountInfo, error)

	// FetchMarketPrice returns the current market price for a symbol.
	FetchMarketPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceOrder places a new order.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)

	// CancelOrder cancels an existing order.
	CancelOrder(ctx context.Context, orderID string) error
}
