// Package batch fans a directory of CDR files out across independent core
// instances, one Driver per file, and aggregates their run reports. This is
// the container the engine package assumes hosts will supply: independent
// core instances sharing the read-mostly classifiers but never sharing a
// leg cache or run state.
package batch

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"CDRGo/internal/endpoint"
	"CDRGo/internal/engine"
	"CDRGo/internal/extension"
	"CDRGo/internal/gid"
	"CDRGo/internal/global"
)

// SinkFactory builds the LegSink a single file's Driver should write to.
// Called once per file, from the goroutine that processes that file.
type SinkFactory func(file string) (engine.LegSink, error)

// Report aggregates one RunReport per processed file plus the totals across
// all of them, tagged with the run-scoped identifier logged alongside every
// line this run produces.
type Report struct {
	RunID   string
	PerFile map[string]engine.RunReport
	Totals  engine.RunReport
}

// Run processes files concurrently, at most concurrency at a time, each
// through its own Driver/Config pair, and returns the aggregate Report. The
// first file-level error (from newSink) is returned; per-line and per-file
// CDR problems are never errors here, they live on the per-file RunReport.
func Run(ctx context.Context, files []string, ext *extension.Classifier, endpoints *endpoint.Classifier, newSink SinkFactory, cfg engine.Config, concurrency int) (Report, error) {
	runID := gid.NewRunID()
	report := Report{RunID: runID, PerFile: make(map[string]engine.RunReport, len(files))}
	global.LogInfof(global.LTBatch, "run %s: starting, %d files, concurrency %d", runID, len(files), concurrency)

	g, gCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var mu sync.Mutex
	for _, file := range files {
		file := file
		g.Go(func() error {
			sink, err := newSink(file)
			if err != nil {
				return fmt.Errorf("building sink for %s: %w", file, err)
			}
			if closer, ok := sink.(io.Closer); ok {
				defer closer.Close()
			}

			driver := engine.NewDriver(ext, endpoints, sink, cfg)
			source := NewFileSource(file)
			defer source.Close()

			result := driver.Process(gCtx, source)

			mu.Lock()
			report.PerFile[file] = result
			mu.Unlock()

			global.LogInfof(global.LTBatch, "run %s: processed %s: %d records, %d calls emitted, %d suppressed",
				runID, file, result.RecordsParsed, result.CallsEmitted, len(result.Suppressed))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, r := range report.PerFile {
		report.Totals.RecordsParsed += r.RecordsParsed
		report.Totals.CallsEmitted += r.CallsEmitted
		report.Totals.TrunkToTrunkSplit += r.TrunkToTrunkSplit
		report.Totals.ParseFailures = append(report.Totals.ParseFailures, r.ParseFailures...)
		report.Totals.Suppressed = append(report.Totals.Suppressed, r.Suppressed...)
		report.Totals.UnknownEndpoints = mergeUnknown(report.Totals.UnknownEndpoints, r.UnknownEndpoints)
		if r.Aborted {
			report.Totals.Aborted = true
		}
	}
	return report, nil
}

func mergeUnknown(acc, next []string) []string {
	seen := make(map[string]bool, len(acc))
	for _, a := range acc {
		seen[a] = true
	}
	for _, n := range next {
		if !seen[n] {
			seen[n] = true
			acc = append(acc, n)
		}
	}
	return acc
}
