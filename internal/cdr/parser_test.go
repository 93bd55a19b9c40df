package cdr_test

import (
	"testing"

	"CDRGo/internal/cdr"

	"github.com/stretchr/testify/require"
)

func TestParseLine_PlainFullCdr(t *testing.T) {
	t.Parallel()

	fields := make([]string, 129)
	for i := range fields {
		fields[i] = ""
	}
	fields[0] = "00000000"
	fields[1] = "2024-01-02T10:00:00"
	fields[2] = "42"
	fields[4] = "20240102100000:abc123"
	fields[10] = "5002"
	fields[11] = "5001"
	fields[18] = "16"
	line := joinCSV(fields)

	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", 1, line)
	require.Nil(t, fail)
	require.NotNil(t, rec)

	fc, ok := rec.(*cdr.FullCdr)
	require.True(t, ok)
	require.Equal(t, int64(42), fc.Duration)
	require.Equal(t, "5001", fc.CallingNumber)
	require.Equal(t, "5002", fc.CalledParty)
	require.Equal(t, int64(16), fc.CauseCode)
	require.Equal(t, "20240102100000:abc123", fc.GlobalCallID())
}

func TestParseLine_SequencePrefixed(t *testing.T) {
	t.Parallel()

	fields := make([]string, 130)
	fields[0] = "1"
	fields[1] = "00000000"
	fields[5] = "5:abcd"
	line := joinCSV(fields)

	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", 2, line)
	require.Nil(t, fail)
	require.NotNil(t, rec)
	require.Equal(t, cdr.KindFullCdr, rec.Kind())
}

func TestParseLine_HeaderLinesSkipped(t *testing.T) {
	t.Parallel()

	p := cdr.NewParser()
	for _, l := range []string{"FILENAME:cdr.txt", "hostname:foo", "VERSION: 1"} {
		rec, fail := p.ParseLine("f.csv", 1, l)
		require.Nil(t, rec)
		require.Nil(t, fail)
	}
}

func TestParseLine_SupplementaryAndUnknownSkipped(t *testing.T) {
	t.Parallel()

	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", 1, "00000005,x,y")
	require.Nil(t, rec)
	require.Nil(t, fail)

	rec, fail = p.ParseLine("f.csv", 1, "99999999,x,y")
	require.Nil(t, rec)
	require.Nil(t, fail)
}

func TestParseLine_MalformedFullCdrMissingGid(t *testing.T) {
	t.Parallel()

	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", 3, "00000000")
	require.Nil(t, rec)
	require.NotNil(t, fail)
	require.Equal(t, 3, fail.SourceLine)
}

func joinCSV(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}
