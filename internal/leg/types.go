// Package leg is the core of the correlation engine: the in-progress Leg
// representation, the leg cache that reconciles out-of-order fragments,
// the builder that turns a parsed record into a Leg, the direction
// resolver, the attempt/answer merger, and the transfer-chain resolver and
// routing-leg suppressor.
//
// A Leg is a mutable, richly-typed in-flight unit of work correlated by
// thread-id or global call-id, held in a concurrent map guarded by a single
// coarse-grained lock.
package leg

// Direction is a leg or call's call_direction variant.
type Direction int

const (
	DirUnknown Direction = iota
	DirIncoming
	DirOutgoing
	DirInternal
	DirTrunkToTrunk
	DirT2TIn
	DirT2TOut
)

func (d Direction) String() string {
	switch d {
	case DirIncoming:
		return "Incoming"
	case DirOutgoing:
		return "Outgoing"
	case DirInternal:
		return "Internal"
	case DirTrunkToTrunk:
		return "TrunkToTrunk"
	case DirT2TIn:
		return "T2TIn"
	case DirT2TOut:
		return "T2TOut"
	default:
		return "Unknown"
	}
}

// directionPriority is the single source of truth for "most external
// direction": TrunkToTrunk > Outgoing > Incoming > Internal > Unknown.
var directionPriority = map[Direction]int{
	DirUnknown:      0,
	DirInternal:     1,
	DirIncoming:     2,
	DirOutgoing:     3,
	DirTrunkToTrunk: 4,
}

// MoreExternal returns the more-external of a and b per the priority table.
func MoreExternal(a, b Direction) Direction {
	if directionPriority[b] > directionPriority[a] {
		return b
	}
	return a
}

// Leg is the in-progress representation of one half-call fragment.
type Leg struct {
	GlobalCallID string
	ThreadID     string
	GidSequence  string
	LegIndex     int
	Timestamp    string

	// Parties (raw).
	CallingNumber   string
	CalledParty     string
	DestinationExt  string
	DialedNumber    string
	ForwardingParty string

	// Parties (derived).
	CallerExtension string
	CallerExternal  string
	CalledExtension string
	CalledExternal  string
	Extension       string
	DialedAni       string

	// Endpoints.
	IngressEndpoint string
	EgressEndpoint  string

	// Routing.
	HuntGroupNumber string
	TransferFrom    string
	TransferTo      string
	ForwardFromExt  string
	ForwardToExt    string

	// State bits.
	IsAnswered  bool
	IsForwarded bool
	IsPickup    bool
	IsVoicemail bool
	IsHgOnly    bool

	// Quantities.
	Duration int64
	RingTime *int64

	// Timing (verbatim ISO-8601 strings, preserved for deterministic
	// ordering).
	CallAnswerTime    string
	InLegConnectTime  string
	OutLegConnectTime string
	OutLegReleaseTime string
	CallReleaseTime   string

	CallDirection Direction

	// Decoded companions.
	CauseCode             int64
	CauseCodeText         string
	AttemptIndicator      int64
	AttemptIndicatorText  string
	PerCallFeature        int64
	PerCallFeatureText    string
	PerCallFeatureExt     int64
	PerCallFeatureExtText string
	CallEventIndicator    int64
	CallEventIndicatorText string
	OrigPartyID           int64
	OrigPartyIDText       string
	TermPartyID           int64
	TermPartyIDText       string
	MediaType             int64

	// Provenance.
	SourceFile string
	SourceLine int
}

// SortKey is the (in_leg_connect_time, source_line) tuple legs are ordered
// by within a group.
type SortKey struct {
	InLegConnectTime string
	SourceLine       int
}

func (l *Leg) SortKey() SortKey {
	return SortKey{InLegConnectTime: l.InLegConnectTime, SourceLine: l.SourceLine}
}

func Less(a, b *Leg) bool {
	ak, bk := a.SortKey(), b.SortKey()
	if ak.InLegConnectTime != bk.InLegConnectTime {
		return ak.InLegConnectTime < bk.InLegConnectTime
	}
	return ak.SourceLine < bk.SourceLine
}

// effectiveDestination is the "preferring destination_ext, falling back to
// called_extension" pattern used by the merger.
func (l *Leg) effectiveDestination() string {
	if l.DestinationExt != "" {
		return l.DestinationExt
	}
	return l.CalledExtension
}
