package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// Strategy defines the contract for trading strategies. Evaluate is called
// once per tick, in the engine's fixed order, and returns the instructions to
// execute for that tick.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error)
}

// TickContext carries the per-tick state handed to every strategy.
type TickContext struct {
	Tick    int64
	At      time.Time
	History *History
}

// Pair is one underlying listed on both venues.
type Pair struct {
	Underlying string
	Main       string
	Alt        string
}

// Fees holds per-venue commissions and the safety buffer added on top of
// every threshold.
type Fees struct {
	MainTaker float64
	AltTaker  float64
	MainMaker float64
	AltMaker  float64
	Buffer    float64
}

// DefaultMaxClip caps any single arbitrage order.
const DefaultMaxClip int64 = 50_000

func newInstruction(tc TickContext, source, symbol string, side domain.OrderSide, typ domain.OrderType, qty int64, price float64, reason string) domain.OrderInstruction {
	return domain.OrderInstruction{
		ID:       uuid.New().String(),
		Source:   source,
		Symbol:   symbol,
		Side:     side,
		Type:     typ,
		Quantity: qty,
		Price:    price,
		Tick:     tc.Tick,
		Reason:   reason,
	}
}

// linkLegs gives legs one shared group ID.
func linkLegs(legs ...domain.OrderInstruction) []domain.OrderInstruction {
	group := uuid.New().String()
	for i := range legs {
		legs[i].Group = group
	}
	return legs
}

func minInt64(vals ...int64) int64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
