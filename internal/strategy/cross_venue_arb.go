package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/market"
)

// CrossVenueArbConfig holds config for the cross_venue_arb strategy.
type CrossVenueArbConfig struct {
	Pairs   []Pair
	Fees    Fees
	MaxClip int64
}

// CrossVenueArb trades the spread between the two listings of the same
// underlying. Each direction is graded on its own: a spread wide enough to pay
// the taker round trip is crossed with market orders on both legs, a smaller
// spread that still clears the buffer is worked with limit orders at the
// touch.
type CrossVenueArb struct {
	cfg    CrossVenueArbConfig
	market domain.MarketData
	logger *slog.Logger

	aggressive decimal.Decimal
	passive    decimal.Decimal
}

// NewCrossVenueArb creates a cross_venue_arb strategy reading books from md.
func NewCrossVenueArb(cfg CrossVenueArbConfig, md domain.MarketData, logger *slog.Logger) *CrossVenueArb {
	if cfg.MaxClip <= 0 {
		cfg.MaxClip = DefaultMaxClip
	}
	buffer := decimal.NewFromFloat(cfg.Fees.Buffer)
	taker := decimal.NewFromFloat(cfg.Fees.MainTaker).
		Add(decimal.NewFromFloat(cfg.Fees.AltTaker)).
		Mul(decimal.NewFromInt(2))
	return &CrossVenueArb{
		cfg:        cfg,
		market:     md,
		logger:     logger.With(slog.String("strategy", "cross_venue_arb")),
		aggressive: taker.Add(buffer.Mul(decimal.NewFromInt(2))),
		passive:    buffer,
	}
}

// Name returns the strategy identifier.
func (a *CrossVenueArb) Name() string { return "cross_venue_arb" }

// Evaluate fetches both books for every configured pair and grades the
// spreads. A book fetch failure aborts the evaluation; instructions already
// produced for earlier pairs are returned with the error.
func (a *CrossVenueArb) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	var out []domain.OrderInstruction
	for _, p := range a.cfg.Pairs {
		mainSnap, err := a.market.GetBook(ctx, p.Main)
		if err != nil {
			return out, fmt.Errorf("cross_venue_arb: book %s: %w", p.Main, err)
		}
		altSnap, err := a.market.GetBook(ctx, p.Alt)
		if err != nil {
			return out, fmt.Errorf("cross_venue_arb: book %s: %w", p.Alt, err)
		}
		out = append(out, a.Check(tc, market.Depth(mainSnap), market.Depth(altSnap))...)
	}
	return out, nil
}

// Check grades both directions of one pair from its two top-of-book views.
// Either book missing a price on either side skips the pair.
func (a *CrossVenueArb) Check(tc TickContext, main, alt market.BestPriceRoom) []domain.OrderInstruction {
	if !main.HasBid || !main.HasAsk || !alt.HasBid || !alt.HasAsk {
		a.logger.Debug("pair skipped, missing price",
			slog.String("main", main.Symbol),
			slog.String("alt", alt.Symbol),
		)
		return nil
	}
	var out []domain.OrderInstruction
	out = append(out, a.direction(tc, main.Symbol, main.BestBid, main.BidRoom, alt.Symbol, alt.BestAsk, alt.AskRoom)...)
	out = append(out, a.direction(tc, alt.Symbol, alt.BestBid, alt.BidRoom, main.Symbol, main.BestAsk, main.AskRoom)...)
	return out
}

// direction sells sellSym at its bid and buys buySym at its ask when the
// spread between them clears a tier.
func (a *CrossVenueArb) direction(tc TickContext, sellSym string, sellPx float64, sellRoom int64, buySym string, buyPx float64, buyRoom int64) []domain.OrderInstruction {
	spread := decimal.NewFromFloat(sellPx).Sub(decimal.NewFromFloat(buyPx))
	if !spread.GreaterThan(a.passive) {
		return nil
	}
	size := minInt64(sellRoom, buyRoom, a.cfg.MaxClip)
	if size <= 0 {
		return nil
	}

	if spread.GreaterThan(a.aggressive) {
		reason := fmt.Sprintf("aggressive: spread %s > %s", spread.String(), a.aggressive.String())
		a.logger.Info("cross venue spread crossed",
			slog.Int64("tick", tc.Tick),
			slog.String("sell", sellSym),
			slog.String("buy", buySym),
			slog.String("spread", spread.String()),
			slog.Int64("size", size),
		)
		return linkLegs(
			newInstruction(tc, a.Name(), sellSym, domain.OrderSideSell, domain.OrderTypeMarket, size, 0, reason),
			newInstruction(tc, a.Name(), buySym, domain.OrderSideBuy, domain.OrderTypeMarket, size, 0, reason),
		)
	}

	reason := fmt.Sprintf("passive: spread %s > %s", spread.String(), a.passive.String())
	a.logger.Info("cross venue spread quoted",
		slog.Int64("tick", tc.Tick),
		slog.String("sell", sellSym),
		slog.String("buy", buySym),
		slog.String("spread", spread.String()),
		slog.Int64("size", size),
	)
	return linkLegs(
		newInstruction(tc, a.Name(), sellSym, domain.OrderSideSell, domain.OrderTypeLimit, size, sellPx, reason),
		newInstruction(tc, a.Name(), buySym, domain.OrderSideBuy, domain.OrderTypeLimit, size, buyPx, reason),
	)
}
