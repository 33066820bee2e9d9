package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// Order outcomes reported to the Recorder.
const (
	OutcomeFilled   = "filled"
	OutcomeAccepted = "accepted"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Recorder receives per-order metrics.
type Recorder interface {
	ObserveOrder(source string, typ domain.OrderType, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOrder(string, domain.OrderType, string) {}

// Executor submits instructions to the venue one at a time, in the order
// they were emitted. A failed submission is logged and recorded on its
// result; it never stops the remaining instructions or the loop.
type Executor struct {
	gateway  domain.OrderGateway
	journal  domain.OrderJournal
	guard    *LimitGuard
	recorder Recorder
	logger   *slog.Logger
}

// New creates an Executor placing orders through gw.
func New(gw domain.OrderGateway, logger *slog.Logger) *Executor {
	return &Executor{
		gateway:  gw,
		recorder: noopRecorder{},
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// SetJournal enables order journaling. Journal failures are logged only.
func (e *Executor) SetJournal(j domain.OrderJournal) { e.journal = j }

// SetLimitGuard enables the pre-trade exposure check.
func (e *Executor) SetLimitGuard(g *LimitGuard) { e.guard = g }

// SetRecorder sets the metrics recorder.
func (e *Executor) SetRecorder(r Recorder) {
	if r != nil {
		e.recorder = r
	}
}

// Execute submits insts sequentially and returns one result per instruction.
// Adjacent instructions sharing a Group pass the limit guard together.
func (e *Executor) Execute(ctx context.Context, insts []domain.OrderInstruction) []domain.OrderResult {
	out := make([]domain.OrderResult, 0, len(insts))
	for start := 0; start < len(insts); {
		end := groupEnd(insts, start)
		legs := insts[start:end]

		var veto error
		if e.guard != nil {
			veto = e.guard.Allow(ctx, legs)
		}
		for _, inst := range legs {
			res := e.submit(ctx, inst, veto)
			out = append(out, res)
			if e.journal != nil {
				if err := e.journal.Record(ctx, inst, res); err != nil {
					e.logger.Warn("order journal write failed",
						slog.String("instruction_id", inst.ID),
						slog.String("error", err.Error()),
					)
				}
			}
		}
		start = end
	}
	return out
}

// groupEnd returns the index just past the run of instructions sharing
// insts[start]'s group.
func groupEnd(insts []domain.OrderInstruction, start int) int {
	end := start + 1
	if g := insts[start].Group; g != "" {
		for end < len(insts) && insts[end].Group == g {
			end++
		}
	}
	return end
}

func (e *Executor) submit(ctx context.Context, inst domain.OrderInstruction, veto error) domain.OrderResult {
	log := e.logger.With(
		slog.String("instruction_id", inst.ID),
		slog.String("source", inst.Source),
		slog.String("symbol", inst.Symbol),
		slog.String("side", string(inst.Side)),
		slog.String("type", string(inst.Type)),
		slog.Int64("quantity", inst.Quantity),
		slog.Int64("tick", inst.Tick),
		slog.String("group", inst.Group),
	)
	res := domain.OrderResult{InstructionID: inst.ID, SubmittedAt: time.Now().UTC()}

	if inst.Quantity <= 0 {
		res.Skipped = true
		res.Message = "non-positive quantity"
		e.recorder.ObserveOrder(inst.Source, inst.Type, OutcomeSkipped)
		log.Warn("order skipped, non-positive quantity")
		return res
	}

	if veto != nil {
		res.Skipped = true
		res.Message = veto.Error()
		e.recorder.ObserveOrder(inst.Source, inst.Type, OutcomeSkipped)
		log.Warn("order skipped by limit guard", slog.String("error", veto.Error()))
		return res
	}

	var err error
	switch inst.Type {
	case domain.OrderTypeMarket:
		res.FillPrice, err = e.gateway.SubmitMarketOrder(ctx, inst.Symbol, inst.Side, inst.Quantity)
	case domain.OrderTypeLimit:
		err = e.gateway.SubmitLimitOrder(ctx, inst.Symbol, inst.Side, RoundPrice(inst.Price), inst.Quantity)
	default:
		err = fmt.Errorf("executor: unknown order type %q", inst.Type)
	}

	if err != nil {
		res.Message = err.Error()
		e.recorder.ObserveOrder(inst.Source, inst.Type, OutcomeFailed)
		var te *domain.TransportError
		if errors.As(err, &te) {
			log.Error("order submission failed",
				slog.Int("status", te.Status),
				slog.String("error", err.Error()),
			)
		} else {
			log.Error("order submission failed", slog.String("error", err.Error()))
		}
		return res
	}

	res.Success = true
	if inst.Type == domain.OrderTypeMarket {
		e.recorder.ObserveOrder(inst.Source, inst.Type, OutcomeFilled)
		log.Info("market order filled", slog.Float64("fill_price", res.FillPrice))
	} else {
		e.recorder.ObserveOrder(inst.Source, inst.Type, OutcomeAccepted)
		log.Info("limit order accepted", slog.Float64("price", RoundPrice(inst.Price)))
	}
	return res
}

// RoundPrice rounds a limit price to the venue's cent increment.
func RoundPrice(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}
