// Package faultlog persists absorbed strategy faults.
package faultlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// File appends faults to a file as JSON lines. The file survives restarts
// and is never truncated.
type File struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// Open creates or opens path for appending.
func Open(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("faultlog: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("faultlog: open %s: %w", path, err)
	}
	return &File{file: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one fault line.
func (l *File) Append(_ context.Context, f domain.Fault) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("faultlog: closed")
	}
	if err := l.enc.Encode(f); err != nil {
		return fmt.Errorf("faultlog: append: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Multi fans a fault out to several logs. Every log is attempted; the
// failures are joined.
type Multi []domain.FaultLog

// Append implements domain.FaultLog.
func (m Multi) Append(ctx context.Context, f domain.Fault) error {
	var errs []error
	for _, l := range m {
		if err := l.Append(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.FaultLog = (*File)(nil)
	_ domain.FaultLog = Multi(nil)
)
