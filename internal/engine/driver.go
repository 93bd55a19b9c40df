package engine

import (
	"context"
	"sort"

	"CDRGo/internal/call"
	"CDRGo/internal/cdr"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
	"CDRGo/internal/leg"
)

// Config parameterizes one Process run.
type Config struct {
	MaxCachedLegs        int
	EarlyEmission        bool
	ConfiguredVoicemail  string
	SeedRoutingNumbers   []string
}

// RunReport is the outcome of one Process call: counts and diagnostics the
// host surfaces to an operator or a caller, never a reason to fail the run
// itself (parse failures are collected, not raised).
type RunReport struct {
	RecordsParsed     int
	ParseFailures     []*cdr.ParseFailure
	Suppressed        []leg.SuppressedReason
	CallsEmitted      int
	TrunkToTrunkSplit int
	UnknownEndpoints  []string
	Aborted           bool
	DiscoveredCallers map[string]struct{ AsCaller, AsDest int }
}

// Driver owns one correlation pass's mutable state: the cache, the run-wide
// scalars, the builder, and the two classifiers. One Driver serves exactly
// one RecordSource; hosts multiplexing tenants/files create one Driver per
// instance.
type Driver struct {
	cache     *leg.Cache
	runState  *leg.RunState
	ext       *extension.Classifier
	endpoints EndpointClassifier
	builder   *leg.Builder
	parser    *cdr.Parser
	sink      LegSink
	cfg       Config

	emitted map[string]bool
}

func NewDriver(ext *extension.Classifier, endpoints *endpoint.Classifier, sink LegSink, cfg Config) *Driver {
	cache := leg.NewCache()
	runState := leg.NewRunState(cfg.ConfiguredVoicemail, cfg.SeedRoutingNumbers)
	return &Driver{
		cache:     cache,
		runState:  runState,
		ext:       ext,
		endpoints: endpoints,
		builder:   leg.NewBuilder(cache, runState, ext, endpoints),
		parser:    cdr.NewParser(),
		sink:      sink,
		cfg:       cfg,
		emitted:   make(map[string]bool),
	}
}

// Process consumes source to exhaustion (or until ctx is cancelled between
// source files) and returns a RunReport. It never returns an error for
// per-line or per-file problems; those are collected on the report.
func (d *Driver) Process(ctx context.Context, source RecordSource) RunReport {
	report := RunReport{}
	currentFile := ""

	for {
		line, sourceFile, sourceLine, ok := source.Next()
		if !ok {
			break
		}
		if sourceFile != currentFile {
			currentFile = sourceFile
			if ctx.Err() != nil {
				report.Aborted = true
				break
			}
		}

		rec, failure := d.parser.ParseLine(sourceFile, sourceLine, line)
		if failure != nil {
			report.ParseFailures = append(report.ParseFailures, failure)
			continue
		}
		if rec == nil {
			continue
		}
		report.RecordsParsed++

		var groupKey string
		switch v := rec.(type) {
		case *cdr.FullCdr:
			res := d.builder.BuildFromFullCdr(v)
			if res.Suppressed != nil {
				report.Suppressed = append(report.Suppressed, *res.Suppressed)
				continue
			}
			groupKey = global.OrEmpty(v.ThreadIDSeq, v.ThreadIDNode, v.GlobalCallID())
		case *cdr.HuntGroup:
			d.builder.BuildFromHuntGroup(v)
			groupKey = v.GlobalCallID()
		case *cdr.CallForward:
			res := d.builder.BuildFromCallForward(v)
			if res.Suppressed != nil {
				report.Suppressed = append(report.Suppressed, *res.Suppressed)
				continue
			}
			groupKey = v.GlobalCallID()
		}

		if groupKey == "" || d.emitted[groupKey] {
			continue
		}

		if d.cfg.EarlyEmission && d.canEmitEarly(groupKey) {
			d.finalizeAndEmit(groupKey, &report)
			continue
		}

		d.evictIfNeeded(&report)
	}

	if !report.Aborted {
		d.drain(&report)
	}

	report.UnknownEndpoints = d.endpoints.UnknownEndpoints()
	if d.ext.IsEmpty() {
		report.DiscoveredCallers = d.ext.DiscoveredCandidates()
	}
	return report
}

// canEmitEarly implements the completion-detection heuristic: an
// externally-sourced group is unambiguously Incoming (not possibly a
// trunk-to-trunk bridge) once it has an internal destination and no leg
// shows a forwarding indication.
func (d *Driver) canEmitEarly(groupKey string) bool {
	legs := d.cache.Peek(groupKey)
	if len(legs) == 0 {
		return false
	}
	hasExternalCaller, hasInternalDest, hasForwarding := false, false, false
	for _, l := range legs {
		if l.IsHgOnly {
			return false
		}
		if l.CallerExternal != "" {
			hasExternalCaller = true
		}
		if l.CalledExtension != "" {
			hasInternalDest = true
		}
		if l.IsForwarded {
			hasForwarding = true
		}
	}
	if !hasExternalCaller {
		return false
	}
	return hasInternalDest && !hasForwarding
}

func (d *Driver) evictIfNeeded(report *RunReport) {
	if d.cfg.MaxCachedLegs <= 0 {
		return
	}
	for d.cache.Count() > d.cfg.MaxCachedLegs {
		keys := d.cache.Keys()
		if len(keys) == 0 {
			return
		}
		oldest := keys[0]
		oldestTime := d.cache.EarliestConnectTime(oldest)
		for _, k := range keys[1:] {
			if t := d.cache.EarliestConnectTime(k); oldestTime == "" || (t != "" && t < oldestTime) {
				oldest, oldestTime = k, t
			}
		}
		d.finalizeAndEmit(oldest, report)
	}
}

func (d *Driver) drain(report *RunReport) {
	keys := d.cache.Keys()
	for _, k := range keys {
		if d.emitted[k] {
			continue
		}
		d.finalizeAndEmit(k, report)
	}
}

func (d *Driver) finalizeAndEmit(groupKey string, report *RunReport) {
	d.emitted[groupKey] = true
	legs := d.cache.Get(groupKey)
	d.cache.RemoveGroup(groupKey)

	kept := legs[:0:0]
	for _, l := range legs {
		if !l.IsHgOnly {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return
	}

	merged := leg.Merge(kept, d.runState)
	pre := leg.Snapshot(merged)
	leg.ResolveTransfers(merged)
	suppressed := leg.Suppress(merged, d.runState)

	calls := call.Finalize(pre, suppressed, d.runState, d.ext)
	if len(calls) == 2 {
		report.TrunkToTrunkSplit++
	}
	for _, c := range calls {
		if err := d.sink.WriteCall(c); err != nil {
			continue
		}
		report.CallsEmitted++
	}
}

// SortCallsForOutput orders finalized calls by (earliest-leg
// in_leg_connect_time, global_call_id) for deterministic end-of-run
// emission, used by hosts that batch rather than stream calls to the sink.
func SortCallsForOutput(calls []*call.Call) {
	sort.SliceStable(calls, func(i, j int) bool {
		ti, tj := earliestConnectTime(calls[i]), earliestConnectTime(calls[j])
		if ti != tj {
			return ti < tj
		}
		return calls[i].GlobalCallID < calls[j].GlobalCallID
	})
}

func earliestConnectTime(c *call.Call) string {
	var earliest string
	for _, l := range c.Legs {
		if earliest == "" || (l.InLegConnectTime != "" && l.InLegConnectTime < earliest) {
			earliest = l.InLegConnectTime
		}
	}
	return earliest
}
