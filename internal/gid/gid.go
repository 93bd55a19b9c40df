// Package gid mints run identifiers and derives the keys the leg cache uses
// to reconcile out-of-order CDR/HuntGroup fragments: one uuid.NewV7-backed
// identifier per batch run, plus GID/thread-key parsing.
package gid

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID mints a run-scoped identifier, mirroring guid.NewCallID.
func NewRunID() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return u.String()
}

// HexSuffix returns the substring of a GID after its final colon. GID format
// is "timestamp:hex" (GLOSSARY); HG and FullCdr records sometimes differ
// only in the timestamp prefix, so the hex suffix is the stable join key
// between them.
func HexSuffix(gid string) string {
	if gid == "" {
		return ""
	}
	if idx := strings.LastIndexByte(gid, ':'); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}

// GroupKey picks the cache key for a set of candidate identifiers in
// priority order ("thread_id_sequence ?? thread_id_node ??
// global_call_id").
func GroupKey(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
