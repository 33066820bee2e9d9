package domain

import (
	"encoding/json"
	"time"
)

// Fault is one absorbed strategy failure, kept for the persistent error log.
type Fault struct {
	Tick     int64     `json:"tick"`
	Strategy string    `json:"strategy"`
	Message  string    `json:"message"`
	Panic    bool      `json:"panic"`
	At       time.Time `json:"at"`
}

// StrategyResult is the outcome of one strategy evaluation within a tick.
type StrategyResult struct {
	Strategy string
	Orders   int
	Err      error
	Duration time.Duration
}

// OK reports whether the strategy completed without error.
func (r StrategyResult) OK() bool { return r.Err == nil }

// MarshalJSON flattens Err into a string.
func (r StrategyResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Strategy   string `json:"strategy"`
		Orders     int    `json:"orders"`
		Error      string `json:"error,omitempty"`
		DurationMs int64  `json:"duration_ms"`
	}{
		Strategy:   r.Strategy,
		Orders:     r.Orders,
		DurationMs: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// TickReport aggregates every strategy result for a single tick.
type TickReport struct {
	Tick    int64
	Results []StrategyResult
	Fatal   error
	At      time.Time
}

// Failed returns the results whose strategy reported an error.
func (r TickReport) Failed() []StrategyResult {
	var out []StrategyResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Orders returns the total number of instructions emitted during the tick.
func (r TickReport) Orders() int {
	n := 0
	for _, res := range r.Results {
		n += res.Orders
	}
	return n
}

// MarshalJSON flattens Fatal into a string.
func (r TickReport) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string           `json:"type"`
		Tick    int64            `json:"tick"`
		Results []StrategyResult `json:"results"`
		Fatal   string           `json:"fatal,omitempty"`
		At      time.Time        `json:"at"`
	}{
		Type:    "tick_report",
		Tick:    r.Tick,
		Results: r.Results,
		At:      r.At,
	}
	if r.Fatal != nil {
		out.Fatal = r.Fatal.Error()
	}
	return json.Marshal(out)
}
