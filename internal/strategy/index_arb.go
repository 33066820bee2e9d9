package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// IndexArbConfig holds config for the index_arb strategy.
type IndexArbConfig struct {
	Index   string
	Basket  []Pair
	Fees    Fees
	MaxClip int64
}

// Composite is the synthetic index assembled from the cheapest venue per leg.
// Bid and ask legs are chosen independently.
type Composite struct {
	Bid     float64
	Ask     float64
	BidSize int64
	AskSize int64
	BidLegs []string
	AskLegs []string
	HasBid  bool
	HasAsk  bool
}

// BuildComposite picks, for every underlying, the listing with the higher bid
// and the listing with the lower ask. Composite size is bounded by the
// thinnest chosen leg. A side is missing when any underlying has no quote on
// it at either venue.
func BuildComposite(basket []Pair, quotes map[string]domain.Quote) Composite {
	c := Composite{HasBid: len(basket) > 0, HasAsk: len(basket) > 0}
	bid, ask := decimal.Zero, decimal.Zero
	for _, p := range basket {
		m, a := quotes[p.Main], quotes[p.Alt]

		if leg, ok := betterBid(m, a); ok && c.HasBid {
			bid = bid.Add(decimal.NewFromFloat(leg.Bid))
			c.BidLegs = append(c.BidLegs, leg.Symbol)
			if len(c.BidLegs) == 1 || leg.BidSize < c.BidSize {
				c.BidSize = leg.BidSize
			}
		} else {
			c.HasBid = false
		}

		if leg, ok := betterAsk(m, a); ok && c.HasAsk {
			ask = ask.Add(decimal.NewFromFloat(leg.Ask))
			c.AskLegs = append(c.AskLegs, leg.Symbol)
			if len(c.AskLegs) == 1 || leg.AskSize < c.AskSize {
				c.AskSize = leg.AskSize
			}
		} else {
			c.HasAsk = false
		}
	}
	if c.HasBid {
		c.Bid = bid.InexactFloat64()
	} else {
		c.BidLegs, c.BidSize = nil, 0
	}
	if c.HasAsk {
		c.Ask = ask.InexactFloat64()
	} else {
		c.AskLegs, c.AskSize = nil, 0
	}
	return c
}

// betterBid prefers main on ties.
func betterBid(m, a domain.Quote) (domain.Quote, bool) {
	switch {
	case m.HasBid() && a.HasBid():
		if a.Bid > m.Bid {
			return a, true
		}
		return m, true
	case m.HasBid():
		return m, true
	case a.HasBid():
		return a, true
	}
	return domain.Quote{}, false
}

// betterAsk prefers main on ties.
func betterAsk(m, a domain.Quote) (domain.Quote, bool) {
	switch {
	case m.HasAsk() && a.HasAsk():
		if a.Ask < m.Ask {
			return a, true
		}
		return m, true
	case m.HasAsk():
		return m, true
	case a.HasAsk():
		return a, true
	}
	return domain.Quote{}, false
}

// IndexArb trades the index instrument against a basket of its dual-listed
// constituents when the two drift apart by more than the fee hurdle.
type IndexArb struct {
	cfg     IndexArbConfig
	market  domain.MarketData
	logger  *slog.Logger
	hurdle  decimal.Decimal
	symbols []string
}

// NewIndexArb creates an index_arb strategy. The hurdle is four main-venue
// taker fees plus the buffer, covering the index and every basket leg.
func NewIndexArb(cfg IndexArbConfig, md domain.MarketData, logger *slog.Logger) *IndexArb {
	if cfg.MaxClip <= 0 {
		cfg.MaxClip = DefaultMaxClip
	}
	symbols := []string{cfg.Index}
	for _, p := range cfg.Basket {
		symbols = append(symbols, p.Main, p.Alt)
	}
	return &IndexArb{
		cfg:    cfg,
		market: md,
		logger: logger.With(slog.String("strategy", "index_arb")),
		hurdle: decimal.NewFromFloat(cfg.Fees.MainTaker).
			Mul(decimal.NewFromInt(4)).
			Add(decimal.NewFromFloat(cfg.Fees.Buffer)),
		symbols: symbols,
	}
}

// Name returns the strategy identifier.
func (x *IndexArb) Name() string { return "index_arb" }

// Evaluate reads one quote snapshot and checks both directions.
func (x *IndexArb) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	quotes, err := x.market.GetQuotes(ctx, x.symbols...)
	if err != nil {
		return nil, fmt.Errorf("index_arb: quotes: %w", err)
	}
	return x.Check(tc, quotes), nil
}

// Check compares the index quote with the composite built from quotes.
func (x *IndexArb) Check(tc TickContext, quotes map[string]domain.Quote) []domain.OrderInstruction {
	idx, ok := quotes[x.cfg.Index]
	if !ok {
		return nil
	}
	comp := BuildComposite(x.cfg.Basket, quotes)

	var out []domain.OrderInstruction

	// Index rich: sell index, buy the basket at its ask legs.
	if idx.HasBid() && comp.HasAsk {
		edge := decimal.NewFromFloat(idx.Bid).Sub(decimal.NewFromFloat(comp.Ask))
		size := minInt64(idx.BidSize, comp.AskSize, x.cfg.MaxClip)
		if edge.GreaterThan(x.hurdle) && size > 0 {
			out = append(out, x.orders(tc, domain.OrderSideSell, comp.AskLegs, size, edge)...)
		}
	}

	// Index cheap: buy index, sell the basket at its bid legs.
	if idx.HasAsk() && comp.HasBid {
		edge := decimal.NewFromFloat(comp.Bid).Sub(decimal.NewFromFloat(idx.Ask))
		size := minInt64(idx.AskSize, comp.BidSize, x.cfg.MaxClip)
		if edge.GreaterThan(x.hurdle) && size > 0 {
			out = append(out, x.orders(tc, domain.OrderSideBuy, comp.BidLegs, size, edge)...)
		}
	}
	return out
}

func (x *IndexArb) orders(tc TickContext, indexSide domain.OrderSide, legs []string, size int64, edge decimal.Decimal) []domain.OrderInstruction {
	reason := fmt.Sprintf("index %s: edge %s > %s", indexSide, edge.String(), x.hurdle.String())
	x.logger.Info("index dislocation",
		slog.Int64("tick", tc.Tick),
		slog.String("index_side", string(indexSide)),
		slog.String("edge", edge.String()),
		slog.Int64("size", size),
		slog.Any("legs", legs),
	)
	out := make([]domain.OrderInstruction, 0, len(legs)+1)
	out = append(out, newInstruction(tc, x.Name(), x.cfg.Index, indexSide, domain.OrderTypeMarket, size, 0, reason))
	for _, sym := range legs {
		out = append(out, newInstruction(tc, x.Name(), sym, indexSide.Opposite(), domain.OrderTypeMarket, size, 0, reason))
	}
	return linkLegs(out...)
}
