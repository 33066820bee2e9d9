package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// State is the engine's position in the tick cycle.
type State string

const (
	StateIdle         State = "idle"
	StateAwaitingTick State = "awaiting_tick"
	StateRunning      State = "running_strategies"
	StateTerminated   State = "terminated"
)

// Outcomes reported to the Recorder per strategy evaluation.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
	OutcomeFatal = "fatal"
)

// Executor submits the instructions produced by a strategy.
type Executor interface {
	Execute(ctx context.Context, insts []domain.OrderInstruction) []domain.OrderResult
}

// Recorder receives loop metrics.
type Recorder interface {
	ObserveTick(tick int64)
	ObserveStrategy(name, outcome string, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTick(int64)                             {}
func (noopRecorder) ObserveStrategy(string, string, time.Duration) {}

// TerminateFunc runs once after the loop has terminated. cause is nil on a
// clean stop.
type TerminateFunc func(ctx context.Context, st Status, cause error)

// EngineConfig tunes the strategy loop.
type EngineConfig struct {
	PollInterval   time.Duration
	RecentLimit    int
	HistoryCap     int
	CleanupTimeout time.Duration
}

// Status is a point-in-time copy of the engine's counters.
type Status struct {
	State      State            `json:"state"`
	LastTick   int64            `json:"last_tick"`
	Ticks      int64            `json:"ticks"`
	Orders     int64            `json:"orders"`
	Faults     map[string]int64 `json:"faults"`
	Strategies []string         `json:"strategies"`
	StartedAt  time.Time        `json:"started_at"`
}

// Engine is the tick-synchronous strategy loop. It waits for the venue to
// advance the tick, then runs every strategy once, in fixed order, each
// behind its own fault boundary. Only a fatal transport error escapes a tick.
type Engine struct {
	cfg        EngineConfig
	strategies []Strategy
	ticks      domain.TickSource
	exec       Executor
	faults     domain.FaultLog
	sinks      []domain.ReportSink
	recorder   Recorder
	history    *History
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	lastTick    int64
	ticksRun    int64
	ordersSent  int64
	faultCounts map[string]int64
	startedAt   time.Time
	recent      []domain.TickReport
	onTerminate []TerminateFunc
	termOnce    sync.Once
}

// NewEngine creates an Engine running strategies in the given order.
func NewEngine(cfg EngineConfig, strategies []Strategy, ticks domain.TickSource, exec Executor, logger *slog.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 500
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 30 * time.Second
	}
	return &Engine{
		cfg:         cfg,
		strategies:  strategies,
		ticks:       ticks,
		exec:        exec,
		recorder:    noopRecorder{},
		history:     NewHistory(cfg.HistoryCap),
		logger:      logger.With(slog.String("component", "strategy_engine")),
		state:       StateIdle,
		lastTick:    -1,
		faultCounts: make(map[string]int64),
	}
}

// SetFaultLog sets the persistent log absorbed strategy failures go to.
func (e *Engine) SetFaultLog(fl domain.FaultLog) { e.faults = fl }

// AddReportSink registers a receiver for every tick report.
func (e *Engine) AddReportSink(s domain.ReportSink) { e.sinks = append(e.sinks, s) }

// SetRecorder sets the metrics recorder.
func (e *Engine) SetRecorder(r Recorder) {
	if r != nil {
		e.recorder = r
	}
}

// OnTerminate registers a cleanup hook. Hooks run once, in registration
// order, after the engine has entered StateTerminated.
func (e *Engine) OnTerminate(fn TerminateFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTerminate = append(e.onTerminate, fn)
}

// History returns the loop-owned accumulator.
func (e *Engine) History() *History { return e.history }

// Run drives the loop until the venue stops the session, ctx is cancelled or
// a fatal transport error occurs. Cancellation is only observed while
// waiting for a tick; a tick in progress always completes. Run returns nil
// on a clean stop.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.mu.Lock()
	e.startedAt = time.Now().UTC()
	e.mu.Unlock()

	e.logger.Info("strategy loop started", slog.Any("strategies", e.names()))
	defer func() {
		e.terminate(ctx, err)
		e.logger.Info("strategy loop stopped")
	}()

	for {
		tick, ok, err := e.awaitTick(ctx)
		if err != nil {
			return fmt.Errorf("strategy loop: await tick: %w", err)
		}
		if !ok {
			return nil
		}
		if _, err := e.RunTick(context.WithoutCancel(ctx), tick); err != nil {
			return fmt.Errorf("strategy loop: tick %d: %w", tick, err)
		}
	}
}

// awaitTick polls the tick source until the tick changes. ok is false when
// the session stopped or ctx was cancelled.
func (e *Engine) awaitTick(ctx context.Context) (tick int64, ok bool, err error) {
	e.setState(StateAwaitingTick)
	for {
		if ctx.Err() != nil {
			e.logger.Info("shutdown requested")
			return 0, false, nil
		}
		st, err := e.ticks.GetTick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("shutdown requested")
				return 0, false, nil
			}
			return 0, false, err
		}
		if st.Stopped() {
			e.logger.Info("session stopped by venue", slog.Int64("tick", st.Tick))
			return 0, false, nil
		}

		e.mu.Lock()
		changed := st.Tick != e.lastTick
		if changed {
			e.lastTick = st.Tick
		}
		e.mu.Unlock()
		if changed {
			return st.Tick, true, nil
		}

		select {
		case <-ctx.Done():
			e.logger.Info("shutdown requested")
			return 0, false, nil
		case <-time.After(e.cfg.PollInterval):
		}
	}
}

// RunTick runs every strategy once for tick and returns the aggregated
// report. The returned error is non-nil only for a fatal transport error, or
// ErrTerminated once the loop has ended.
func (e *Engine) RunTick(ctx context.Context, tick int64) (domain.TickReport, error) {
	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return domain.TickReport{}, domain.ErrTerminated
	}
	e.state = StateRunning
	e.mu.Unlock()

	tc := TickContext{Tick: tick, At: time.Now().UTC(), History: e.history}
	report := domain.TickReport{Tick: tick, At: tc.At}

	for _, s := range e.strategies {
		res, insts, err := e.runOne(ctx, s, tc)
		if len(insts) > 0 && e.exec != nil {
			e.exec.Execute(ctx, insts)
		}
		report.Results = append(report.Results, res)
		if domain.IsFatal(err) {
			report.Fatal = err
			break
		}
	}

	e.recorder.ObserveTick(tick)
	e.remember(report)
	e.publish(ctx, report)

	if report.Fatal != nil {
		e.logger.Error("fatal transport error, stopping loop",
			slog.Int64("tick", tick),
			slog.String("error", report.Fatal.Error()),
		)
		return report, report.Fatal
	}
	return report, nil
}

// runOne is the fault boundary around a single evaluation. Panics and
// non-fatal errors become a StrategyError on the result.
func (e *Engine) runOne(ctx context.Context, s Strategy, tc TickContext) (res domain.StrategyResult, insts []domain.OrderInstruction, err error) {
	name := s.Name()
	start := time.Now()
	panicked := false

	defer func() {
		if r := recover(); r != nil {
			panicked = true
			insts = nil
			err = &domain.StrategyError{Strategy: name, Tick: tc.Tick, Panic: true, Err: fmt.Errorf("%v", r)}
		}
		res = domain.StrategyResult{
			Strategy: name,
			Orders:   len(insts),
			Err:      err,
			Duration: time.Since(start),
		}
		e.observe(ctx, tc, res, panicked)
	}()

	insts, err = s.Evaluate(ctx, tc)
	if err != nil && !domain.IsFatal(err) {
		err = &domain.StrategyError{Strategy: name, Tick: tc.Tick, Err: err}
	}
	return res, insts, err
}

func (e *Engine) observe(ctx context.Context, tc TickContext, res domain.StrategyResult, panicked bool) {
	outcome := OutcomeOK
	switch {
	case panicked:
		outcome = OutcomePanic
	case domain.IsFatal(res.Err):
		outcome = OutcomeFatal
	case res.Err != nil:
		outcome = OutcomeError
	}
	e.recorder.ObserveStrategy(res.Strategy, outcome, res.Duration)

	e.mu.Lock()
	e.ordersSent += int64(res.Orders)
	if outcome == OutcomeError || outcome == OutcomePanic {
		e.faultCounts[res.Strategy]++
	}
	e.mu.Unlock()

	if outcome == OutcomeOK || outcome == OutcomeFatal {
		return
	}
	e.logger.Warn("strategy failed",
		slog.String("strategy", res.Strategy),
		slog.Int64("tick", tc.Tick),
		slog.Bool("panic", panicked),
		slog.String("error", res.Err.Error()),
	)
	if e.faults == nil {
		return
	}
	f := domain.Fault{
		Tick:     tc.Tick,
		Strategy: res.Strategy,
		Message:  res.Err.Error(),
		Panic:    panicked,
		At:       time.Now().UTC(),
	}
	if err := e.faults.Append(ctx, f); err != nil {
		e.logger.Error("fault log append failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) publish(ctx context.Context, r domain.TickReport) {
	for _, s := range e.sinks {
		if err := s.PublishReport(ctx, r); err != nil {
			e.logger.Warn("publish tick report failed",
				slog.Int64("tick", r.Tick),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (e *Engine) remember(r domain.TickReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticksRun++
	e.recent = append(e.recent, r)
	if overflow := len(e.recent) - e.cfg.RecentLimit; overflow > 0 {
		e.recent = append([]domain.TickReport(nil), e.recent[overflow:]...)
	}
}

// RecentReports returns up to limit most recent tick reports, newest first.
func (e *Engine) RecentReports(limit int) []domain.TickReport {
	if limit <= 0 {
		limit = 20
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.recent)
	if limit > n {
		limit = n
	}
	out := make([]domain.TickReport, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.recent[i])
	}
	return out
}

// Status returns a snapshot of the loop counters.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	faults := make(map[string]int64, len(e.faultCounts))
	for k, v := range e.faultCounts {
		faults[k] = v
	}
	return Status{
		State:      e.state,
		LastTick:   e.lastTick,
		Ticks:      e.ticksRun,
		Orders:     e.ordersSent,
		Faults:     faults,
		Strategies: e.names(),
		StartedAt:  e.startedAt,
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateTerminated {
		e.state = s
	}
}

func (e *Engine) names() []string {
	out := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		out[i] = s.Name()
	}
	return out
}

// terminate moves the engine to StateTerminated and runs the cleanup hooks
// exactly once.
func (e *Engine) terminate(ctx context.Context, cause error) {
	e.termOnce.Do(func() {
		e.mu.Lock()
		e.state = StateTerminated
		hooks := append([]TerminateFunc(nil), e.onTerminate...)
		e.mu.Unlock()

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CleanupTimeout)
		defer cancel()
		st := e.Status()
		for _, h := range hooks {
			e.runHook(cctx, h, st, cause)
		}
	})
}

func (e *Engine) runHook(ctx context.Context, h TerminateFunc, st Status, cause error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("terminate hook panicked", slog.Any("panic", r))
		}
	}()
	h(ctx, st, cause)
}

// IsTerminated reports whether the loop has ended.
func (e *Engine) IsTerminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateTerminated
}
