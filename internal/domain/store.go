package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit int
	Since *time.Time
}

// JournalEntry is one recorded order submission.
type JournalEntry struct {
	Instruction OrderInstruction
	Result      OrderResult
	RecordedAt  time.Time
}

// OrderJournal persists every order submission for later audit. The trading
// core never reads it back.
type OrderJournal interface {
	Record(ctx context.Context, inst OrderInstruction, res OrderResult) error
	List(ctx context.Context, opts ListOpts) ([]JournalEntry, error)
}

// FaultLog is the persistent error log strategy faults are appended to.
type FaultLog interface {
	Append(ctx context.Context, f Fault) error
}

// ReportSink receives the report of every completed tick.
type ReportSink interface {
	PublishReport(ctx context.Context, r TickReport) error
}
