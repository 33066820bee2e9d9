package domain

import "context"

// TickSource reports the session clock.
type TickSource interface {
	GetTick(ctx context.Context) (TickStatus, error)
}

// MarketData serves the per-tick snapshots strategies read from.
type MarketData interface {
	GetBook(ctx context.Context, symbol string) (OrderBookSnapshot, error)
	// GetQuotes returns quotes keyed by symbol. No symbols means all.
	GetQuotes(ctx context.Context, symbols ...string) (map[string]Quote, error)
	// GetHistory returns up to count bars, most recent last.
	GetHistory(ctx context.Context, symbol string, count int) ([]OHLCBar, error)
	GetNews(ctx context.Context, limit int) ([]NewsItem, error)
	GetLimits(ctx context.Context) ([]Limits, error)
}

// OrderGateway submits orders to the venue.
type OrderGateway interface {
	SubmitLimitOrder(ctx context.Context, symbol string, side OrderSide, price float64, qty int64) error
	SubmitMarketOrder(ctx context.Context, symbol string, side OrderSide, qty int64) (fillPrice float64, err error)
}

// Venue is the full collaborator surface of the exchange.
type Venue interface {
	TickSource
	MarketData
	OrderGateway
}
