package batch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"CDRGo/internal/batch"
	"CDRGo/internal/call"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"

	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu    sync.Mutex
	calls []*call.Call
}

func (s *memSink) WriteCall(c *call.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	return nil
}

func fullCdrLine(gid, destinationExt, callingNumber, causeCode string) string {
	fields := make([]string, 129)
	fields[0] = "00000000"
	fields[1] = "2024-01-02T10:00:00"
	fields[2] = "42"
	fields[4] = gid
	fields[11] = callingNumber
	fields[18] = causeCode
	fields[127] = destinationExt
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}

func TestRun_TwoFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	line := fullCdrLine("20240102100000:abc1", "5002", "5001", "16")
	f1 := filepath.Join(dir, "a.csv")
	f2 := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(f1, []byte(line+"\n"), 0o644))
	require.NoError(t, os.WriteFile(f2, []byte(line+"\n"), 0o644))

	ext := extension.New()
	ext.Load([]string{"5000-5099"})
	ep := endpoint.New()

	sinks := map[string]*memSink{}
	var mu sync.Mutex
	newSink := func(file string) (engine.LegSink, error) {
		s := &memSink{}
		mu.Lock()
		sinks[file] = s
		mu.Unlock()
		return s, nil
	}

	report, err := batch.Run(context.Background(), []string{f1, f2}, ext, ep, newSink, engine.Config{}, 2)
	require.NoError(t, err)
	require.Len(t, report.PerFile, 2)
	require.Equal(t, 2, report.Totals.RecordsParsed)
	require.Equal(t, 2, report.Totals.CallsEmitted)
}
