package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/market"
)

// IndexRatioConfig holds config for the index_ratio recorder.
type IndexRatioConfig struct {
	Numerator   string
	Denominator string
}

// IndexRatio records the mid ratio of two instruments into the loop history
// every tick. It never trades; the series is summarised when the loop ends.
type IndexRatio struct {
	cfg    IndexRatioConfig
	market domain.MarketData
	logger *slog.Logger
}

// NewIndexRatio creates an index_ratio recorder.
func NewIndexRatio(cfg IndexRatioConfig, md domain.MarketData, logger *slog.Logger) *IndexRatio {
	return &IndexRatio{
		cfg:    cfg,
		market: md,
		logger: logger.With(slog.String("strategy", "index_ratio")),
	}
}

// Name returns the strategy identifier.
func (r *IndexRatio) Name() string { return "index_ratio" }

// Key is the History series the ratio is recorded on.
func (r *IndexRatio) Key() string {
	return RatioKey(r.cfg.Numerator, r.cfg.Denominator)
}

// RatioKey names the History series for a numerator/denominator pair.
func RatioKey(num, den string) string {
	return "ratio:" + num + "/" + den
}

// Evaluate appends mid(numerator)/mid(denominator) when both books have a
// two-sided market.
func (r *IndexRatio) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	num, err := r.market.GetBook(ctx, r.cfg.Numerator)
	if err != nil {
		return nil, fmt.Errorf("index_ratio: book %s: %w", r.cfg.Numerator, err)
	}
	den, err := r.market.GetBook(ctx, r.cfg.Denominator)
	if err != nil {
		return nil, fmt.Errorf("index_ratio: book %s: %w", r.cfg.Denominator, err)
	}

	numMid, ok1 := market.Depth(num).Mid()
	denMid, ok2 := market.Depth(den).Mid()
	if !ok1 || !ok2 || denMid == 0 {
		r.logger.Debug("ratio skipped, one-sided book", slog.Int64("tick", tc.Tick))
		return nil, nil
	}
	if tc.History != nil {
		tc.History.Append(r.Key(), numMid/denMid)
	}
	return nil, nil
}
