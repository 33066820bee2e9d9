package faultlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

func readFaults(t *testing.T, path string) []domain.Fault {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []domain.Fault
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var fault domain.Fault
		require.NoError(t, json.Unmarshal(sc.Bytes(), &fault))
		out = append(out, fault)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFile_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "faults.jsonl")
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, domain.Fault{Tick: 1, Strategy: "index_arb", Message: "a"}))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, domain.Fault{Tick: 2, Strategy: "news_shock", Message: "b", Panic: true, At: time.Unix(5, 0).UTC()}))
	require.NoError(t, l.Close())

	got := readFaults(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "index_arb", got[0].Strategy)
	assert.Equal(t, int64(2), got[1].Tick)
	assert.True(t, got[1].Panic)
}

func TestFile_AppendAfterClose(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "faults.jsonl"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Error(t, l.Append(context.Background(), domain.Fault{}))
}

type failingLog struct{ calls int }

func (f *failingLog) Append(context.Context, domain.Fault) error {
	f.calls++
	return errors.New("down")
}

func TestMulti(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faults.jsonl")
	file, err := Open(path)
	require.NoError(t, err)
	defer file.Close()

	bad := &failingLog{}
	m := Multi{bad, file}
	err = m.Append(context.Background(), domain.Fault{Tick: 9, Strategy: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Len(t, readFaults(t, path), 1)
}
