package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

const (
	defaultShortWindow    = 20
	defaultLongWindow     = 100
	defaultTrendThreshold = 4

	flatEpsilon = 1e-9
)

// TrendMomentumConfig holds config for the trend_momentum strategy.
type TrendMomentumConfig struct {
	Symbols     []string
	ShortWindow int
	LongWindow  int
	Threshold   int
	Clip        int64

	// Cooldown is the number of ticks a fired symbol/horizon/side stays
	// quiet. Zero uses ShortWindow.
	Cooldown int64
}

// Horizon is one lookback the trend scorer runs over. Inverted horizons
// trade with the trend instead of against it.
type Horizon struct {
	Name     string
	Window   int
	Inverted bool
}

// TrendMomentum scores recent highs and lows by recursive window splitting.
// On the short horizon a strong score is faded; on the long horizon the
// direction is inverted and the move is followed.
type TrendMomentum struct {
	cfg      TrendMomentumConfig
	market   domain.MarketData
	logger   *slog.Logger
	horizons []Horizon
	fired    *Dedup
}

// NewTrendMomentum creates a trend_momentum strategy.
func NewTrendMomentum(cfg TrendMomentumConfig, md domain.MarketData, logger *slog.Logger) *TrendMomentum {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = defaultShortWindow
	}
	if cfg.LongWindow <= 0 {
		cfg.LongWindow = defaultLongWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultTrendThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = int64(cfg.ShortWindow)
	}
	return &TrendMomentum{
		cfg:    cfg,
		market: md,
		logger: logger.With(slog.String("strategy", "trend_momentum")),
		horizons: []Horizon{
			{Name: "short", Window: cfg.ShortWindow},
			{Name: "long", Window: cfg.LongWindow, Inverted: true},
		},
		fired: NewDedup(cfg.Cooldown),
	}
}

// Name returns the strategy identifier.
func (t *TrendMomentum) Name() string { return "trend_momentum" }

// Horizons returns the configured horizons, short first.
func (t *TrendMomentum) Horizons() []Horizon {
	out := make([]Horizon, len(t.horizons))
	copy(out, t.horizons)
	return out
}

// Evaluate fetches one history per symbol, long enough for every horizon.
// A signal that keeps holding is traded once per cooldown.
func (t *TrendMomentum) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	t.fired.Cleanup(tc.Tick)
	need := 0
	for _, h := range t.horizons {
		if h.Window > need {
			need = h.Window
		}
	}

	var out []domain.OrderInstruction
	for _, sym := range t.cfg.Symbols {
		bars, err := t.market.GetHistory(ctx, sym, need)
		if err != nil {
			return out, fmt.Errorf("trend_momentum: history %s: %w", sym, err)
		}
		for _, h := range t.horizons {
			side, score, ok := t.Signal(bars, h)
			if !ok {
				continue
			}
			if t.fired.IsDuplicate(fmt.Sprintf("%s|%s|%s", sym, h.Name, side), tc.Tick) {
				continue
			}
			reason := fmt.Sprintf("%s horizon score %d", h.Name, score)
			t.logger.Info("trend signal",
				slog.Int64("tick", tc.Tick),
				slog.String("symbol", sym),
				slog.String("horizon", h.Name),
				slog.Int("score", score),
				slog.String("side", string(side)),
			)
			out = append(out, newInstruction(tc, t.Name(), sym, side, domain.OrderTypeMarket, t.cfg.Clip, 0, reason))
		}
	}
	return out, nil
}

// Signal scores the last h.Window bars. ok is false when there is not enough
// history or the combined score stays within the threshold.
func (t *TrendMomentum) Signal(bars []domain.OHLCBar, h Horizon) (side domain.OrderSide, score int, ok bool) {
	if h.Window <= 0 || len(bars) < h.Window {
		return "", 0, false
	}
	window := bars[len(bars)-h.Window:]
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, b := range window {
		highs[i] = b.High
		lows[i] = b.Low
	}
	score = Score(highs) + Score(lows)

	switch {
	case score < -t.cfg.Threshold:
		side = domain.OrderSideBuy
	case score > t.cfg.Threshold:
		side = domain.OrderSideSell
	default:
		return "", score, false
	}
	if h.Inverted {
		side = side.Opposite()
	}
	return side, score, true
}

// SplitScores votes on the direction of the whole series, its left half and
// its right half. Each vote compares the mean of the right half of the
// segment with the mean of its left half: +1 up, -1 down, 0 flat.
func SplitScores(series []float64) [3]int {
	mid := len(series) / 2
	return [3]int{
		halfVote(series),
		halfVote(series[:mid]),
		halfVote(series[mid:]),
	}
}

// Score sums SplitScores.
func Score(series []float64) int {
	s := SplitScores(series)
	return s[0] + s[1] + s[2]
}

func halfVote(seg []float64) int {
	if len(seg) < 2 {
		return 0
	}
	mid := len(seg) / 2
	d := mean(seg[mid:]) - mean(seg[:mid])
	switch {
	case d > flatEpsilon:
		return 1
	case d < -flatEpsilon:
		return -1
	}
	return 0
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
