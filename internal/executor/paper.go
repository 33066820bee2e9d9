package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// PaperGateway simulates order submission against live quotes. Market
// orders fill at the touch; limit orders are acknowledged and never fill.
// Nothing is sent to the venue.
type PaperGateway struct {
	quotes domain.MarketData
	logger *slog.Logger

	mu        sync.Mutex
	positions map[string]int64
}

// NewPaperGateway creates a PaperGateway pricing fills from md.
func NewPaperGateway(md domain.MarketData, logger *slog.Logger) *PaperGateway {
	return &PaperGateway{
		quotes:    md,
		logger:    logger.With(slog.String("component", "paper_gateway")),
		positions: make(map[string]int64),
	}
}

// SubmitLimitOrder logs the order.
func (p *PaperGateway) SubmitLimitOrder(_ context.Context, symbol string, side domain.OrderSide, price float64, qty int64) error {
	p.logger.Info("paper limit order",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Float64("price", price),
		slog.Int64("quantity", qty),
	)
	return nil
}

// SubmitMarketOrder fills at the current ask for buys and bid for sells.
func (p *PaperGateway) SubmitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, qty int64) (float64, error) {
	qs, err := p.quotes.GetQuotes(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("paper: quote %s: %w", symbol, err)
	}
	q, ok := qs[symbol]
	if !ok {
		return 0, fmt.Errorf("paper: quote %s: %w", symbol, domain.ErrNotFound)
	}

	var px float64
	switch side {
	case domain.OrderSideBuy:
		if !q.HasAsk() {
			return 0, fmt.Errorf("paper: %s ask: %w", symbol, domain.ErrNoPrice)
		}
		px = q.Ask
	case domain.OrderSideSell:
		if !q.HasBid() {
			return 0, fmt.Errorf("paper: %s bid: %w", symbol, domain.ErrNoPrice)
		}
		px = q.Bid
	default:
		return 0, fmt.Errorf("paper: unknown side %q", side)
	}

	p.mu.Lock()
	if side == domain.OrderSideBuy {
		p.positions[symbol] += qty
	} else {
		p.positions[symbol] -= qty
	}
	p.mu.Unlock()

	p.logger.Info("paper market fill",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Int64("quantity", qty),
		slog.Float64("fill_price", px),
	)
	return px, nil
}

// Positions returns the simulated net position per symbol.
func (p *PaperGateway) Positions() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out
}
