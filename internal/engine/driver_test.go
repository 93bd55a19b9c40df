package engine_test

import (
	"context"
	"strings"
	"testing"

	"CDRGo/internal/call"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/leg"

	"github.com/stretchr/testify/require"
)

// memSink captures every finalized call a Driver writes, in order.
type memSink struct {
	calls []*call.Call
}

func (s *memSink) WriteCall(c *call.Call) error {
	s.calls = append(s.calls, c)
	return nil
}

// lineSource is a fixed, in-memory RecordSource: every line reports the
// same source file, with a 1-based line number.
type lineSource struct {
	file  string
	lines []string
	idx   int
}

func newLineSource(file string, lines []string) *lineSource {
	return &lineSource{file: file, lines: lines}
}

func (s *lineSource) Next() (line, sourceFile string, sourceLine int, ok bool) {
	if s.idx >= len(s.lines) {
		return "", "", 0, false
	}
	line = s.lines[s.idx]
	s.idx++
	return line, s.file, s.idx, true
}

func joinFields(fields []string) string {
	return strings.Join(fields, ",")
}

type fullCdrSpec struct {
	gid, timestamp, callingNumber, destinationExt string
	causeCode, duration, connectTime              string
	ingress, egress                                string
}

func fullCdrLine(f fullCdrSpec) string {
	fields := make([]string, 129)
	fields[0] = "00000000"
	fields[1] = f.timestamp
	fields[2] = f.duration
	fields[4] = f.gid
	fields[11] = f.callingNumber
	fields[18] = f.causeCode
	fields[49] = f.connectTime
	fields[125] = f.ingress
	fields[126] = f.egress
	fields[127] = f.destinationExt
	return joinFields(fields)
}

func huntGroupLine(gid, timestamp, huntGroupNumber, routedTo string) string {
	fields := make([]string, 11)
	fields[0] = "00000004"
	fields[1] = timestamp
	fields[4] = gid
	fields[5] = huntGroupNumber
	fields[10] = routedTo
	return joinFields(fields)
}

func pstnEndpoints() *endpoint.Classifier {
	ep := endpoint.New()
	ep.Load([]endpoint.Entry{
		{Type: "NNITypePSTNGateway", Name: "pstn-gw"},
		{Type: "Local", Name: "pbx-int"},
	})
	return ep
}

// TestProcess_HuntGroupFanOut reproduces the scenario where a HuntGroup
// fragment arrives before the FullCdr it belongs to: the placeholder must
// be reconciled onto the real leg once it shows up, and the group must
// still resolve as a single Incoming call.
func TestProcess_HuntGroupFanOut(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := pstnEndpoints()
	sink := &memSink{}
	driver := engine.NewDriver(ext, ep, sink, engine.Config{})

	gid := "20240102100000:abc123"
	lines := []string{
		huntGroupLine(gid, "2024-01-02T10:00:00", "HG1", "5010"),
		fullCdrLine(fullCdrSpec{
			gid: gid, timestamp: "2024-01-02T10:00:05",
			callingNumber: "13055551234", destinationExt: "5010",
			causeCode: "16", duration: "30", connectTime: "2024-01-02T10:00:05",
			ingress: "pstn-gw", egress: "pbx-int",
		}),
	}

	report := driver.Process(context.Background(), newLineSource("calls.csv", lines))

	require.Equal(t, 2, report.RecordsParsed)
	require.Empty(t, report.Suppressed)
	require.Len(t, sink.calls, 1)

	c := sink.calls[0]
	require.Equal(t, leg.DirIncoming, c.CallDirection)
	require.Equal(t, "HG1", c.HuntGroupNumber)
	require.Equal(t, "5010", c.Extension)
	require.Equal(t, "13055551234", c.CallerExternal)
}

// TestProcess_EarlyEmission_EmitsUnambiguousIncomingCall exercises the
// completion-detection heuristic directly: an external-caller group with
// an internal destination and no forwarding leg is unambiguous, so it
// finalizes without waiting for end-of-run.
func TestProcess_EarlyEmission_EmitsUnambiguousIncomingCall(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := pstnEndpoints()
	sink := &memSink{}
	driver := engine.NewDriver(ext, ep, sink, engine.Config{EarlyEmission: true})

	gid := "20240102110000:def456"
	line := fullCdrLine(fullCdrSpec{
		gid: gid, timestamp: "2024-01-02T11:00:00",
		callingNumber: "13055559999", destinationExt: "5020",
		causeCode: "16", duration: "20", connectTime: "2024-01-02T11:00:00",
		ingress: "pstn-gw", egress: "pbx-int",
	})

	report := driver.Process(context.Background(), newLineSource("f.csv", []string{line}))

	require.Equal(t, 1, report.CallsEmitted)
	require.Len(t, sink.calls, 1)
	require.Equal(t, leg.DirIncoming, sink.calls[0].CallDirection)
	require.Equal(t, "5020", sink.calls[0].Extension)
}

// TestProcess_EarlyEmission_LateArrivalForEmittedGroupIsDropped confirms
// that once a group key has been finalized and emitted early, a later
// record sharing that same key is never re-merged into a second call: the
// key is permanently marked emitted and end-of-run drain skips it too.
func TestProcess_EarlyEmission_LateArrivalForEmittedGroupIsDropped(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := pstnEndpoints()
	sink := &memSink{}
	driver := engine.NewDriver(ext, ep, sink, engine.Config{EarlyEmission: true})

	gid := "20240102120000:ghi789"
	first := fullCdrLine(fullCdrSpec{
		gid: gid, timestamp: "2024-01-02T12:00:00",
		callingNumber: "13055550000", destinationExt: "5030",
		causeCode: "16", duration: "5", connectTime: "2024-01-02T12:00:00",
		ingress: "pstn-gw", egress: "pbx-int",
	})
	late := fullCdrLine(fullCdrSpec{
		gid: gid, timestamp: "2024-01-02T12:05:00",
		callingNumber: "13055550000", destinationExt: "5030",
		causeCode: "16", duration: "8", connectTime: "2024-01-02T12:05:00",
		ingress: "pstn-gw", egress: "pbx-int",
	})

	report := driver.Process(context.Background(), newLineSource("f.csv", []string{first, late}))

	require.Equal(t, 2, report.RecordsParsed)
	require.Equal(t, 1, report.CallsEmitted)
	require.Len(t, sink.calls, 1)
	require.Equal(t, int64(5), sink.calls[0].TotalDuration)
}

// TestProcess_BoundedCacheEviction feeds a third group's leg through
// twice, split by a group that pushes the cache over its bound in between.
// With eviction enabled, the first arrival is forced out and finalized
// (alone) before the second arrives, so it never gets the chance to merge
// with it; with eviction disabled the two arrivals sit in the same group
// until end-of-run and are finalized together.
func TestProcess_BoundedCacheEviction(t *testing.T) {
	t.Parallel()

	gidA := "20240101090000:aaa111"
	gidB := "20240101093000:bbb222"

	a1 := fullCdrLine(fullCdrSpec{
		gid: gidA, timestamp: "2024-01-01T09:00:00",
		callingNumber: "5001", destinationExt: "5002",
		causeCode: "16", duration: "10", connectTime: "2024-01-01T09:00:00",
	})
	b1 := fullCdrLine(fullCdrSpec{
		gid: gidB, timestamp: "2024-01-01T09:30:00",
		callingNumber: "5003", destinationExt: "5004",
		causeCode: "16", duration: "12", connectTime: "2024-01-01T09:30:00",
	})
	a2 := fullCdrLine(fullCdrSpec{
		gid: gidA, timestamp: "2024-01-01T10:00:00",
		callingNumber: "5001", destinationExt: "5002",
		causeCode: "16", duration: "15", connectTime: "2024-01-01T10:00:00",
	})
	lines := []string{a1, b1, a2}

	findCall := func(calls []*call.Call, gid string) *call.Call {
		for _, c := range calls {
			if c.GlobalCallID == gid {
				return c
			}
		}
		return nil
	}

	t.Run("eviction enabled forces the oldest group out early", func(t *testing.T) {
		t.Parallel()
		ext := extension.New()
		ep := endpoint.New()
		sink := &memSink{}
		driver := engine.NewDriver(ext, ep, sink, engine.Config{MaxCachedLegs: 1})

		report := driver.Process(context.Background(), newLineSource("bounded.csv", lines))

		require.Equal(t, 3, report.RecordsParsed)
		require.Len(t, sink.calls, 2)

		a := findCall(sink.calls, gidA)
		require.NotNil(t, a)
		require.Equal(t, 1, a.TotalLegs)
	})

	t.Run("no bound keeps the group together until drain", func(t *testing.T) {
		t.Parallel()
		ext := extension.New()
		ep := endpoint.New()
		sink := &memSink{}
		driver := engine.NewDriver(ext, ep, sink, engine.Config{})

		report := driver.Process(context.Background(), newLineSource("unbounded.csv", lines))

		require.Equal(t, 3, report.RecordsParsed)
		require.Len(t, sink.calls, 2)

		a := findCall(sink.calls, gidA)
		require.NotNil(t, a)
		require.Equal(t, 2, a.TotalLegs)
	})
}
