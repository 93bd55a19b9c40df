package metrics_test

import (
	"testing"

	"CDRGo/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRunReport_AccumulatesAcrossCalls(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRunReport(10, 4, 1, 2, 0, 3)
	m.ObserveRunReport(5, 2, 0, 1, 1, 3)

	require.InDelta(t, 15, testutil.ToFloat64(m.RecordsParsed), 0)
	require.InDelta(t, 6, testutil.ToFloat64(m.CallsEmitted), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.TrunkToTrunkSplit), 0)
	require.InDelta(t, 3, testutil.ToFloat64(m.LegsSuppressed), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.ParseFailures), 0)
	require.InDelta(t, 3, testutil.ToFloat64(m.UnknownEndpoints), 0)
}
