package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BinanceExchange implements Exchange against the Binance spot API.
type BinanceExchange struct {
	client *binance.Client
	mu     sync.RWMutex

	// Internal order ID -> exchange order, for cancellation
	orders map[string]*Order

	quoteAsset  string
	testnet     bool
	retryConfig RetryConfig
}

// BinanceConfig contains configuration for the Binance exchange
type BinanceConfig struct {
	APIKey      string
	SecretKey   string
	Testnet     bool
	QuoteAsset  string // balance asset reported as account equity, default USDT
	RetryConfig RetryConfig
}

// NewBinanceExchange creates a new Binance exchange client
func NewBinanceExchange(cfg BinanceConfig) (*BinanceExchange, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, NewAPIError(KindAuth, 0, "api key and secret key are required", nil)
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	if cfg.Testnet {
		binance.UseTestnet = true
		log.Info().Msg("Binance exchange initialized (TESTNET mode)")
	} else {
		log.Warn().Msg("Binance exchange initialized (LIVE TRADING mode)")
	}

	quote := cfg.QuoteAsset
	if quote == "" {
		quote = "USDT"
	}

	return &BinanceExchange{
		client:      client,
		orders:      make(map[string]*Order),
		quoteAsset:  quote,
		testnet:     cfg.Testnet,
		retryConfig: cfg.RetryConfig,
	}, nil
}

// FetchAccountInfo returns the free plus locked balance of the quote
// asset.
func (b *BinanceExchange) FetchAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var account *binance.Account

	err := WithRetry(ctx, b.retryConfig, func() error {
		var err error
		account, err = b.client.NewGetAccountService().Do(ctx)
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account info: %w", err)
	}

	var balance float64
	for _, bal := range account.Balances {
		if bal.Asset != b.quoteAsset {
			continue
		}
		free, _ := strconv.ParseFloat(bal.Free, 64)
		locked, _ := strconv.ParseFloat(bal.Locked, 64)
		balance = free + locked
		break
	}

	return &AccountInfo{Balance: balance, Currency: b.quoteAsset}, nil
}

// FetchMarketPrice returns the last traded price for a symbol.
func (b *BinanceExchange) FetchMarketPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*binance.SymbolPrice

	err := WithRetry(ctx, b.retryConfig, func() error {
		var err error
		prices, err = b.client.NewListPricesService().Symbol(b.binanceSymbol(symbol)).Do(ctx)
		return classify(err)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, NewAPIError(KindValidation, 0, fmt.Sprintf("unknown symbol: %s", symbol), nil)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

// PlaceOrder places an order on Binance. The caller wraps this in its
// own retry/breaker; errors come back classified.
func (b *BinanceExchange) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	side := binance.SideTypeBuy
	if req.Side == OrderSideSell {
		side = binance.SideTypeSell
	}

	service := b.client.NewCreateOrderService().
		Symbol(b.binanceSymbol(req.Symbol)).
		Side(side).
		Quantity(fmt.Sprintf("%.8f", req.Quantity))

	if req.Type == OrderTypeMarket {
		service = service.Type(binance.OrderTypeMarket)
	} else {
		service = service.
			Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(fmt.Sprintf("%.8f", req.Price))
	}

	binanceOrder, err := service.Do(ctx)
	if err != nil {
		return nil, classify(err)
	}

	now := time.Now()
	filledQty, _ := strconv.ParseFloat(binanceOrder.ExecutedQuantity, 64)
	avgPrice := averageFillPrice(binanceOrder)

	order := &Order{
		ID:              uuid.New().String(),
		ExchangeOrderID: strconv.FormatInt(binanceOrder.OrderID, 10),
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            req.Type,
		Quantity:        req.Quantity,
		Price:           req.Price,
		FilledQty:       filledQty,
		AvgFillPrice:    avgPrice,
		Status:          convertBinanceStatus(binanceOrder.Status),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.Status == OrderStatusFilled {
		order.FilledAt = &now
	}

	b.mu.Lock()
	b.orders[order.ID] = order
	b.mu.Unlock()

	log.Info().
		Str("order_id", order.ID).
		Str("exchange_order_id", order.ExchangeOrderID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("status", string(order.Status)).
		Msg("Order placed on Binance")

	return &OrderResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		FilledQty:    order.FilledQty,
		AvgFillPrice: order.AvgFillPrice,
		Message:      "Order placed",
	}, nil
}

// CancelOrder cancels an open order placed through this client.
func (b *BinanceExchange) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.RLock()
	order, exists := b.orders[orderID]
	b.mu.RUnlock()
	if !exists {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("order not found: %s", orderID), nil)
	}

	exchangeOrderID, err := strconv.ParseInt(order.ExchangeOrderID, 10, 64)
	if err != nil {
		return NewAPIError(KindValidation, 0, fmt.Sprintf("invalid exchange order id: %s", order.ExchangeOrderID), err)
	}

	err = WithRetry(ctx, b.retryConfig, func() error {
		_, err := b.client.NewCancelOrderService().
			Symbol(b.binanceSymbol(order.Symbol)).
			OrderID(exchangeOrderID).
			Do(ctx)
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}

	b.mu.Lock()
	order.Status = OrderStatusCancelled
	order.UpdatedAt = time.Now()
	b.mu.Unlock()

	return nil
}

// binanceSymbol converts a dash-separated pair to Binance notation,
// e.g. BTC-USD -> BTCUSDT.
func (b *BinanceExchange) binanceSymbol(symbol string) string {
	s := strings.ReplaceAll(strings.ToUpper(symbol), "-", "")
	if strings.HasSuffix(s, "USD") && !strings.HasSuffix(s, "USDT") {
		s += "T"
	}
	return s
}

func averageFillPrice(resp *binance.CreateOrderResponse) float64 {
	executedQty, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	quoteQty, _ := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)
	if executedQty == 0 {
		return 0
	}
	return quoteQty / executedQty
}

func convertBinanceStatus(status binance.OrderStatusType) OrderStatus {
	switch status {
	case binance.OrderStatusTypeFilled:
		return OrderStatusFilled
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return OrderStatusOpen
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return OrderStatusRejected
	default:
		return OrderStatusPending
	}
}

// classify maps Binance API error codes into the error taxonomy.
// Unknown codes and transport failures read as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return NewAPIError(KindTransient, 0, err.Error(), err)
	}

	switch apiErr.Code {
	case -1003, -1015: // too many requests / too many orders
		return NewAPIError(KindRateLimited, apiErr.Code, apiErr.Message, err)
	case -2014, -2015, -1002: // bad API key format / rejected key / unauthorized
		return NewAPIError(KindAuth, apiErr.Code, apiErr.Message, err)
	case -2010: // insufficient balance
		return NewAPIError(KindInsufficientFunds, apiErr.Code, apiErr.Message, err)
	case -1100, -1102, -1111, -1121, -1013: // malformed params / bad precision / bad symbol / bad filters
		return NewAPIError(KindValidation, apiErr.Code, apiErr.Message, err)
	case -1001, -1021: // internal error / timestamp outside recvWindow
		return NewAPIError(KindTransient, apiErr.Code, apiErr.Message, err)
	default:
		return NewAPIError(KindTransient, apiErr.Code, apiErr.Message, err)
	}
}
