package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTerminated    = errors.New("strategy loop terminated")
	ErrLimitBreached = errors.New("exposure limit breached")
	ErrNoPrice       = errors.New("no price on side")
)

// TransportOp names the collaborator call that failed.
type TransportOp string

const (
	OpTick    TransportOp = "tick"
	OpBook    TransportOp = "book"
	OpQuotes  TransportOp = "quotes"
	OpHistory TransportOp = "history"
	OpNews    TransportOp = "news"
	OpLimits  TransportOp = "limits"
	OpOrder   TransportOp = "order"
)

// TransportError is a failed or non-success call to the venue.
type TransportError struct {
	Op     TransportOp
	Status int    // HTTP status, 0 when the request never completed
	Body   string // truncated response body
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("transport %s: HTTP %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("transport %s: HTTP %d", e.Op, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fatal reports whether the loop cannot proceed without the failed data.
func (e *TransportError) Fatal() bool {
	return e.Op == OpTick || e.Op == OpBook
}

// IsFatal reports whether err wraps a fatal TransportError.
func IsFatal(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Fatal()
}

// StrategyError is any failure absorbed at a strategy's fault boundary.
type StrategyError struct {
	Strategy string
	Tick     int64
	Panic    bool
	Err      error
}

func (e *StrategyError) Error() string {
	if e.Panic {
		return fmt.Sprintf("strategy %s tick %d: panic: %v", e.Strategy, e.Tick, e.Err)
	}
	return fmt.Sprintf("strategy %s tick %d: %v", e.Strategy, e.Tick, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
