package strategy

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMarket serves canned data and per-op errors.
type fakeMarket struct {
	books   map[string]domain.OrderBookSnapshot
	quotes  map[string]domain.Quote
	history map[string][]domain.OHLCBar
	news    []domain.NewsItem
	errs    map[domain.TransportOp]error

	bookCalls []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		books:   make(map[string]domain.OrderBookSnapshot),
		quotes:  make(map[string]domain.Quote),
		history: make(map[string][]domain.OHLCBar),
		errs:    make(map[domain.TransportOp]error),
	}
}

func (f *fakeMarket) GetBook(_ context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	f.bookCalls = append(f.bookCalls, symbol)
	if err := f.errs[domain.OpBook]; err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	b, ok := f.books[symbol]
	if !ok {
		return domain.OrderBookSnapshot{Symbol: symbol}, nil
	}
	return b, nil
}

func (f *fakeMarket) GetQuotes(_ context.Context, symbols ...string) (map[string]domain.Quote, error) {
	if err := f.errs[domain.OpQuotes]; err != nil {
		return nil, err
	}
	out := make(map[string]domain.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (f *fakeMarket) GetHistory(_ context.Context, symbol string, count int) ([]domain.OHLCBar, error) {
	if err := f.errs[domain.OpHistory]; err != nil {
		return nil, err
	}
	bars := f.history[symbol]
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (f *fakeMarket) GetNews(_ context.Context, limit int) ([]domain.NewsItem, error) {
	if err := f.errs[domain.OpNews]; err != nil {
		return nil, err
	}
	if len(f.news) > limit {
		return f.news[:limit], nil
	}
	return f.news, nil
}

func (f *fakeMarket) GetLimits(_ context.Context) ([]domain.Limits, error) {
	if err := f.errs[domain.OpLimits]; err != nil {
		return nil, err
	}
	return nil, nil
}

func book(symbol string, bidPx float64, bidQty int64, askPx float64, askQty int64) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		Symbol: symbol,
		Bids:   []domain.BookLevel{{Price: bidPx, Quantity: bidQty}},
		Asks:   []domain.BookLevel{{Price: askPx, Quantity: askQty}},
	}
}

// scriptedTicks replays a fixed sequence of statuses, repeating the last.
type scriptedTicks struct {
	mu    sync.Mutex
	steps []domain.TickStatus
	errAt int
	err   error
	calls int
}

func (s *scriptedTicks) GetTick(_ context.Context) (domain.TickStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if s.err != nil && i == s.errAt {
		return domain.TickStatus{}, s.err
	}
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i], nil
}

// recordingExec captures every executed batch.
type recordingExec struct {
	mu      sync.Mutex
	batches [][]domain.OrderInstruction
}

func (r *recordingExec) Execute(_ context.Context, insts []domain.OrderInstruction) []domain.OrderResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, insts)
	out := make([]domain.OrderResult, len(insts))
	for i, in := range insts {
		out[i] = domain.OrderResult{InstructionID: in.ID, Success: true}
	}
	return out
}

func (r *recordingExec) all() []domain.OrderInstruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderInstruction
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

// funcStrategy adapts a closure to Strategy.
type funcStrategy struct {
	name string
	fn   func(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error)
}

func (f funcStrategy) Name() string { return f.name }

func (f funcStrategy) Evaluate(ctx context.Context, tc TickContext) ([]domain.OrderInstruction, error) {
	return f.fn(ctx, tc)
}

type memFaults struct {
	mu     sync.Mutex
	faults []domain.Fault
}

func (m *memFaults) Append(_ context.Context, f domain.Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, f)
	return nil
}

type memSink struct {
	mu      sync.Mutex
	reports []domain.TickReport
}

func (m *memSink) PublishReport(_ context.Context, r domain.TickReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}
