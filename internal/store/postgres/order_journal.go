package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// OrderJournal implements domain.OrderJournal using PostgreSQL. Rows are
// append only; a repeated instruction ID is ignored.
type OrderJournal struct {
	pool *pgxpool.Pool
}

// NewOrderJournal creates a new OrderJournal backed by the given pool.
func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{pool: pool}
}

// Record inserts one submission.
func (j *OrderJournal) Record(ctx context.Context, inst domain.OrderInstruction, res domain.OrderResult) error {
	const query = `
		INSERT INTO order_journal (
			instruction_id, source, symbol, side, order_type,
			quantity, price, tick, reason, group_id,
			success, skipped, fill_price, message, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		ON CONFLICT (instruction_id) DO NOTHING`

	_, err := j.pool.Exec(ctx, query,
		inst.ID, inst.Source, inst.Symbol, string(inst.Side), string(inst.Type),
		inst.Quantity, inst.Price, inst.Tick, inst.Reason, inst.Group,
		res.Success, res.Skipped, res.FillPrice, res.Message, res.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", inst.ID, err)
	}
	return nil
}

const journalSelectCols = `instruction_id, source, symbol, side, order_type,
	quantity, price, tick, reason, group_id,
	success, skipped, fill_price, message, submitted_at, recorded_at`

// List returns journal entries newest first.
func (j *OrderJournal) List(ctx context.Context, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	query, args := listQuery(opts)
	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order journal: %w", err)
	}
	defer rows.Close()

	entries, err := scanJournalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order journal: %w", err)
	}
	return entries, nil
}

func listQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + journalSelectCols + ` FROM order_journal`
	var args []any
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" WHERE recorded_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY recorded_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
	}
	return query, args
}

func scanJournalRows(rows pgx.Rows) ([]domain.JournalEntry, error) {
	var out []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var side, orderType string
		err := rows.Scan(
			&e.Instruction.ID, &e.Instruction.Source, &e.Instruction.Symbol,
			&side, &orderType,
			&e.Instruction.Quantity, &e.Instruction.Price, &e.Instruction.Tick, &e.Instruction.Reason, &e.Instruction.Group,
			&e.Result.Success, &e.Result.Skipped, &e.Result.FillPrice, &e.Result.Message,
			&e.Result.SubmittedAt, &e.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Instruction.Side = domain.OrderSide(side)
		e.Instruction.Type = domain.OrderType(orderType)
		e.Result.InstructionID = e.Instruction.ID
		out = append(out, e)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.OrderJournal = (*OrderJournal)(nil)
