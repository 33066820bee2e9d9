package app

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tickbot/internal/config"
	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

// buildStrategies registers every strategy the config knows about and
// returns the enabled ones in run order.
func buildStrategies(cfg config.StrategyConfig, fees config.FeesConfig, md domain.MarketData, logger *slog.Logger) ([]strategy.Strategy, error) {
	pairs := make([]strategy.Pair, 0, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs = append(pairs, strategy.Pair{Underlying: p.Underlying, Main: p.Main, Alt: p.Alt})
	}
	f := strategy.Fees{
		MainTaker: fees.MainTaker,
		AltTaker:  fees.AltTaker,
		MainMaker: fees.MainMaker,
		AltMaker:  fees.AltMaker,
		Buffer:    fees.Buffer,
	}

	reg := strategy.NewRegistry()
	all := []strategy.Strategy{
		strategy.NewCrossVenueArb(strategy.CrossVenueArbConfig{
			Pairs:   pairs,
			Fees:    f,
			MaxClip: cfg.CrossVenueArb.MaxClip,
		}, md, logger),
		strategy.NewIndexArb(strategy.IndexArbConfig{
			Index:   cfg.IndexArb.Index,
			Basket:  pairs,
			Fees:    f,
			MaxClip: cfg.IndexArb.MaxClip,
		}, md, logger),
		strategy.NewNewsShock(strategy.NewsShockConfig{
			Pairs:           pairs,
			TakerFee:        f.MainTaker,
			Buffer:          f.Buffer,
			Clip:            cfg.NewsShock.Clip,
			NewsLimit:       cfg.NewsShock.NewsLimit,
			FreshnessWindow: cfg.NewsShock.FreshnessWindow,
			ReactFreshness:  cfg.NewsShock.ReactFreshness,
			ReversalTick:    cfg.NewsShock.ReversalTick,
		}, md, logger),
		strategy.NewTrendMomentum(strategy.TrendMomentumConfig{
			Symbols:     cfg.TrendMomentum.Symbols,
			ShortWindow: cfg.TrendMomentum.ShortWindow,
			LongWindow:  cfg.TrendMomentum.LongWindow,
			Threshold:   cfg.TrendMomentum.Threshold,
			Clip:        cfg.TrendMomentum.Clip,
			Cooldown:    cfg.TrendMomentum.Cooldown,
		}, md, logger),
		strategy.NewIndexRatio(strategy.IndexRatioConfig{
			Numerator:   cfg.IndexRatio.Numerator,
			Denominator: cfg.IndexRatio.Denominator,
		}, md, logger),
	}
	for _, s := range all {
		if err := reg.Register(s); err != nil {
			return nil, fmt.Errorf("app: register strategy: %w", err)
		}
	}

	out, err := reg.Ordered(cfg.RunOrder())
	if err != nil {
		return nil, fmt.Errorf("app: strategy order: %w", err)
	}
	return out, nil
}
