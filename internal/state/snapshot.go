// Package state writes the trader-state snapshot taken when the strategy
// loop terminates.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

// Snapshot is the JSON document written at shutdown.
type Snapshot struct {
	Status         strategy.Status                 `json:"status"`
	Cause          string                          `json:"cause,omitempty"`
	Series         map[string]strategy.SeriesStats `json:"series"`
	Positions      map[string]int64                `json:"positions"`
	PositionsError string                          `json:"positions_error,omitempty"`
	WrittenAt      time.Time                       `json:"written_at"`
}

// PositionSource reports net positions per symbol.
type PositionSource func(ctx context.Context) (map[string]int64, error)

// QuotePositions reads positions from the venue's quote table.
func QuotePositions(md domain.MarketData) PositionSource {
	return func(ctx context.Context) (map[string]int64, error) {
		qs, err := md.GetQuotes(ctx)
		if err != nil {
			return nil, fmt.Errorf("state: quotes: %w", err)
		}
		out := make(map[string]int64, len(qs))
		for sym, q := range qs {
			if q.Position != 0 {
				out[sym] = q.Position
			}
		}
		return out, nil
	}
}

// StaticPositions adapts an in-memory position book such as the paper
// gateway's.
func StaticPositions(fn func() map[string]int64) PositionSource {
	return func(context.Context) (map[string]int64, error) { return fn(), nil }
}

// Writer builds snapshots and stores them on disk and, optionally, in blob
// storage.
type Writer struct {
	path      string
	history   *strategy.History
	positions PositionSource
	blob      domain.BlobWriter
	now       func() time.Time
	logger    *slog.Logger
}

// NewWriter creates a Writer saving to path and summarising history.
func NewWriter(path string, history *strategy.History, logger *slog.Logger) *Writer {
	return &Writer{
		path:    path,
		history: history,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "state_snapshot")),
	}
}

// SetPositions sets where positions are read from.
func (w *Writer) SetPositions(src PositionSource) { w.positions = src }

// SetBlob enables upload of every snapshot.
func (w *Writer) SetBlob(b domain.BlobWriter) { w.blob = b }

// Build assembles a snapshot. A position lookup failure is recorded on the
// snapshot rather than returned.
func (w *Writer) Build(ctx context.Context, st strategy.Status, cause error) Snapshot {
	snap := Snapshot{
		Status:    st,
		Series:    make(map[string]strategy.SeriesStats),
		Positions: map[string]int64{},
		WrittenAt: w.now().UTC(),
	}
	if cause != nil {
		snap.Cause = cause.Error()
	}
	if w.history != nil {
		for _, k := range w.history.Keys() {
			snap.Series[k] = w.history.Stats(k)
		}
	}
	if w.positions != nil {
		pos, err := w.positions(ctx)
		if err != nil {
			snap.PositionsError = err.Error()
		} else if pos != nil {
			snap.Positions = pos
		}
	}
	return snap
}

// Write saves snap to the local path and uploads it when blob storage is
// configured. The local file is replaced atomically.
func (w *Writer) Write(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	if w.path != "" {
		if err := writeFileAtomic(w.path, data); err != nil {
			return err
		}
	}

	if w.blob != nil {
		key := "state-" + snap.WrittenAt.Format("20060102T150405Z") + ".json"
		if err := w.blob.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
			return fmt.Errorf("state: upload %s: %w", key, err)
		}
	}
	return nil
}

// Hook returns the terminate hook that builds and writes a snapshot.
func (w *Writer) Hook() strategy.TerminateFunc {
	return func(ctx context.Context, st strategy.Status, cause error) {
		snap := w.Build(ctx, st, cause)
		if err := w.Write(ctx, snap); err != nil {
			w.logger.Error("snapshot write failed", slog.String("error", err.Error()))
			return
		}
		w.logger.Info("snapshot written",
			slog.String("path", w.path),
			slog.Int64("last_tick", st.LastTick),
			slog.Int("positions", len(snap.Positions)),
		)
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("state: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("state: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("state: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}
