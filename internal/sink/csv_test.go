package sink_test

import (
	"os"
	"strings"
	"testing"

	"CDRGo/internal/call"
	"CDRGo/internal/leg"
	"CDRGo/internal/sink"

	"github.com/stretchr/testify/require"
)

func TestCSVSink_WriteCall(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/legs.csv"
	s, err := sink.NewCSVSink(path)
	require.NoError(t, err)

	ringTime := int64(5)
	c := &call.Call{
		GlobalCallID:         "20240102100000:abc123",
		OriginalDialedDigits: "5002",
		Legs: []*leg.Leg{{
			GlobalCallID:    "20240102100000:abc123",
			Timestamp:       "2024-01-02T10:00:00",
			CallDirection:   leg.DirInternal,
			CallerExtension: "5001",
			CalledExtension: "5002",
			Duration:        42,
			IsAnswered:      true,
			LegIndex:        1,
			RingTime:        &ringTime,
		}},
	}
	require.NoError(t, s.WriteCall(c))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))

	lines := strings.Split(strings.TrimRight(string(data[3:]), "\n"), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "StartDate,StartTime,RingTime,Duration"))

	fields := strings.Split(lines[1], ",")
	require.Equal(t, "2024-01-02", fields[0])
	require.Equal(t, "10:00:00", fields[1])
	require.Equal(t, "5", fields[2])
	require.Equal(t, "42", fields[3])
	require.Equal(t, "Internal", fields[4])
}
