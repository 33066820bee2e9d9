package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// LimitSource reports the trader's exposure limits.
type LimitSource interface {
	GetLimits(ctx context.Context) ([]domain.Limits, error)
}

// LimitGuard skips orders that would take gross exposure past any venue
// limit. Limits are fetched at most once per tick; orders accepted during the
// tick are charged against the cached headroom. Legs of one trade are checked
// as a unit so a hedge is never sent half done.
type LimitGuard struct {
	source LimitSource
	logger *slog.Logger

	mu       sync.Mutex
	tick     int64
	loaded   bool
	headroom []float64
	names    []string
}

// NewLimitGuard creates a LimitGuard backed by src.
func NewLimitGuard(src LimitSource, logger *slog.Logger) *LimitGuard {
	return &LimitGuard{
		source: src,
		logger: logger.With(slog.String("component", "limit_guard")),
		tick:   -1,
	}
}

// Allow returns ErrLimitBreached when the combined quantity of legs exceeds
// the remaining headroom of any capped limit. The legs are accepted or
// refused together. A failed limits fetch allows them.
func (g *LimitGuard) Allow(ctx context.Context, legs []domain.OrderInstruction) error {
	if len(legs) == 0 {
		return nil
	}
	tick := legs[0].Tick

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.loaded || g.tick != tick {
		limits, err := g.source.GetLimits(ctx)
		if err != nil {
			g.logger.Warn("limits unavailable, allowing order",
				slog.Int64("tick", tick),
				slog.String("error", err.Error()),
			)
			return nil
		}
		g.tick, g.loaded = tick, true
		g.headroom = g.headroom[:0]
		g.names = g.names[:0]
		for _, l := range limits {
			g.headroom = append(g.headroom, l.GrossHeadroom())
			g.names = append(g.names, l.Name)
		}
	}

	var total int64
	for _, l := range legs {
		if l.Quantity > 0 {
			total += l.Quantity
		}
	}
	qty := float64(total)
	for i, room := range g.headroom {
		if room >= 0 && qty > room {
			return fmt.Errorf("%w: %s needs %d, headroom %.0f", domain.ErrLimitBreached, g.names[i], total, room)
		}
	}
	for i, room := range g.headroom {
		if room >= 0 {
			g.headroom[i] = room - qty
		}
	}
	return nil
}
