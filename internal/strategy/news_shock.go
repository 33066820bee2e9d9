package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

const (
	defaultNewsLimit       = 20
	defaultFreshnessWindow = 2
	defaultReactFreshness  = 1
	defaultReversalTick    = 2
)

// NewsShockConfig holds config for the news_shock strategy.
type NewsShockConfig struct {
	Pairs           []Pair
	TakerFee        float64
	Buffer          float64
	Clip            int64
	NewsLimit       int
	FreshnessWindow int64
	ReactFreshness  int64
	ReversalTick    int64
}

// NewsShock takes a directional position on both listings when a headline
// announces a price shock, then unwinds it once the shock has aged to the
// reversal tick.
type NewsShock struct {
	cfg       NewsShockConfig
	market    domain.MarketData
	logger    *slog.Logger
	threshold float64
	dedup     *Dedup
}

// NewNewsShock creates a news_shock strategy.
func NewNewsShock(cfg NewsShockConfig, md domain.MarketData, logger *slog.Logger) *NewsShock {
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = defaultNewsLimit
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = defaultFreshnessWindow
	}
	if cfg.ReactFreshness <= 0 {
		cfg.ReactFreshness = defaultReactFreshness
	}
	if cfg.ReversalTick <= 0 {
		cfg.ReversalTick = defaultReversalTick
	}
	return &NewsShock{
		cfg:       cfg,
		market:    md,
		logger:    logger.With(slog.String("strategy", "news_shock")),
		threshold: cfg.TakerFee + 2*cfg.Buffer,
		dedup:     NewDedup(max(cfg.FreshnessWindow, cfg.ReversalTick) + 1),
	}
}

// Name returns the strategy identifier.
func (n *NewsShock) Name() string { return "news_shock" }

// Evaluate pulls the latest headlines and reacts to the actionable ones.
func (n *NewsShock) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	items, err := n.market.GetNews(ctx, n.cfg.NewsLimit)
	if err != nil {
		return nil, fmt.Errorf("news_shock: news: %w", err)
	}
	n.dedup.Cleanup(tc.Tick)
	return n.React(tc, Actionable(items, tc.Tick, n.cfg.FreshnessWindow)), nil
}

// Actionable scores items against tick, keeps those aged 0..window ticks and
// orders them by ascending elapsed. Ties keep feed order.
func Actionable(items []domain.NewsItem, tick, window int64) []domain.NewsShock {
	out := make([]domain.NewsShock, 0, len(items))
	for _, it := range items {
		elapsed := tick - it.Tick
		if elapsed < 0 || elapsed > window {
			continue
		}
		out = append(out, domain.NewsShock{
			NewsID:    it.ID,
			Ticker:    it.Ticker,
			Elapsed:   elapsed,
			Magnitude: ParseMagnitude(it.Headline),
			Headline:  it.Headline,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Elapsed < out[j].Elapsed })
	return out
}

// React turns actionable shocks into market orders on both listings.
func (n *NewsShock) React(tc TickContext, shocks []domain.NewsShock) []domain.OrderInstruction {
	var out []domain.OrderInstruction
	for _, sh := range shocks {
		if math.Abs(sh.Magnitude) <= n.threshold {
			continue
		}
		pair, ok := n.pairFor(sh.Ticker)
		if !ok {
			continue
		}

		side := domain.OrderSideBuy
		if sh.Magnitude < 0 {
			side = domain.OrderSideSell
		}
		var phase string
		switch {
		case sh.Elapsed < n.cfg.ReactFreshness:
			phase = "react"
		case sh.Elapsed == n.cfg.ReversalTick:
			phase = "reverse"
			side = side.Opposite()
		default:
			continue
		}

		event := fmt.Sprintf("%d|%s|%d", sh.NewsID, sh.Ticker, tc.Tick-sh.Elapsed)
		// A reversal only unwinds a reaction this strategy actually sent.
		if phase == "reverse" && !n.dedup.Seen(event+"|react", tc.Tick) {
			n.logger.Debug("reversal skipped, no reaction sent",
				slog.Int64("tick", tc.Tick),
				slog.Int64("news_id", sh.NewsID),
			)
			continue
		}
		if n.dedup.IsDuplicate(event+"|"+phase, tc.Tick) {
			continue
		}

		reason := fmt.Sprintf("%s shock %+.2f on %s", phase, sh.Magnitude, pair.Underlying)
		n.logger.Info("news shock",
			slog.Int64("tick", tc.Tick),
			slog.String("phase", phase),
			slog.String("ticker", sh.Ticker),
			slog.Float64("magnitude", sh.Magnitude),
			slog.Int64("elapsed", sh.Elapsed),
		)
		out = append(out, linkLegs(
			newInstruction(tc, n.Name(), pair.Main, side, domain.OrderTypeMarket, n.cfg.Clip, 0, reason),
			newInstruction(tc, n.Name(), pair.Alt, side, domain.OrderTypeMarket, n.cfg.Clip, 0, reason),
		)...)
	}
	return out
}

// pairFor matches a news ticker to the underlying or either of its listings.
func (n *NewsShock) pairFor(ticker string) (Pair, bool) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	for _, p := range n.cfg.Pairs {
		if t == strings.ToUpper(p.Underlying) || t == strings.ToUpper(p.Main) || t == strings.ToUpper(p.Alt) {
			return p, true
		}
	}
	return Pair{}, false
}

// ParseMagnitude reads the signed dollar amount from the last word of a
// headline, e.g. "... rises by $1.50." or "... falls -$0.75". A last word
// without a dollar sign, or anything that does not parse, yields 0.
func ParseMagnitude(headline string) float64 {
	fields := strings.Fields(headline)
	if len(fields) == 0 {
		return 0
	}
	tok := strings.TrimRight(fields[len(fields)-1], ".,;:!?)")

	neg, dollar := false, false
	for {
		switch {
		case strings.HasPrefix(tok, "-"):
			neg = !neg
			tok = tok[1:]
			continue
		case strings.HasPrefix(tok, "$"):
			dollar = true
			tok = tok[1:]
			continue
		case strings.HasPrefix(tok, "+"):
			tok = tok[1:]
			continue
		}
		break
	}
	tok = strings.ReplaceAll(tok, ",", "")
	if !dollar || tok == "" {
		return 0
	}

	d, err := decimal.NewFromString(tok)
	if err != nil {
		return 0
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64()
}
