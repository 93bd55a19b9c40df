// Package engine wires the record parser, leg builder, leg cache and call
// finalizer into the streaming driver: the one entry point the rest of the
// system calls to run a correlation pass over a record source.
//
// The driver loop reads one unit of input, dispatches it, and repeats until
// the source is exhausted or an abort signal fires.
package engine

import "CDRGo/internal/call"

// RecordSource is the abstraction the core consumes: a lazy sequence of
// text lines, each tagged with its source file and 1-based line number.
// No rewinding; end of stream is total.
type RecordSource interface {
	// Next returns the next line, its source file name, and its 1-based
	// line number within that file. ok is false once the source is
	// exhausted.
	Next() (line string, sourceFile string, sourceLine int, ok bool)
}

// EndpointClassifier is the subset of endpoint.Classifier the core
// depends on, named here so alternative hosts can supply their own.
type EndpointClassifier interface {
	IsPSTN(raw string) bool
	IsKnown(raw string) bool
	IsLoaded() bool
	PSTNCount() int
	UnknownEndpoints() []string
}

// LegSink receives finalized calls.
type LegSink interface {
	WriteCall(c *call.Call) error
}
