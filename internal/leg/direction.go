package leg

import (
	"CDRGo/internal/cdr"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
)

// Strategy is the per-side classification a leg's caller and destination go
// through before the shared overrides, table lookup and salvage rules run.
type Strategy interface {
	Sides(l *Leg, cache *Cache, groupKey string) (callerInternal, destInternal bool)
}

// SelectStrategy chooses ExtensionRange when extension ranges are
// configured, else SipEndpoint. The choice is made once, at construction.
func SelectStrategy(ext *extension.Classifier, ep *endpoint.Classifier) Strategy {
	if !ext.IsEmpty() {
		return &ExtensionRangeStrategy{ext: ext}
	}
	return &SipEndpointStrategy{ep: ep}
}

// ExtensionRangeStrategy classifies both sides against configured extension
// ranges/exact numbers.
type ExtensionRangeStrategy struct {
	ext *extension.Classifier
}

func (s *ExtensionRangeStrategy) Sides(l *Leg, _ *Cache, _ string) (callerInternal, destInternal bool) {
	callerInternal = s.ext.IsExtension(l.CallingNumber)
	destInternal = s.ext.IsExtension(l.DestinationExt) || s.ext.IsExtension(l.DialedNumber) || s.ext.IsExtension(l.CalledParty)
	return callerInternal, destInternal
}

// SipEndpointStrategy classifies both sides from the SIP endpoint
// classifier, falling back to orig/term party-id and, failing that, to the
// direction already established by prior legs in the same group.
type SipEndpointStrategy struct {
	ep *endpoint.Classifier
}

func (s *SipEndpointStrategy) Sides(l *Leg, cache *Cache, groupKey string) (callerInternal, destInternal bool) {
	ingressKnown := s.ep.IsKnown(l.IngressEndpoint)
	egressKnown := s.ep.IsKnown(l.EgressEndpoint)

	callerInternal = s.resolveSide(l.IngressEndpoint, ingressKnown, true, l.OrigPartyID)
	destInternal = s.resolveSide(l.EgressEndpoint, egressKnown, false, l.TermPartyID)

	if !ingressKnown && !egressKnown {
		if prior, ok := firstResolvedDirection(cache, groupKey); ok {
			switch prior {
			case DirIncoming:
				return false, true
			case DirOutgoing:
				return true, false
			case DirInternal:
				return true, true
			case DirTrunkToTrunk:
				return false, false
			}
		}
	}
	return callerInternal, destInternal
}

func (s *SipEndpointStrategy) resolveSide(endpointVal string, known, isCaller bool, partyID int64) bool {
	if known {
		return !s.ep.IsPSTN(endpointVal)
	}
	if isCaller {
		switch partyID {
		case cdr.PartyIDInternalOrigin:
			return true
		case cdr.PartyIDExternal:
			return false
		}
	} else {
		switch partyID {
		case cdr.PartyIDInternalTermination:
			return true
		case cdr.PartyIDExternal:
			return false
		}
	}
	return true // no signal either way: default to internal rather than leak a call as trunk-to-trunk
}

func firstResolvedDirection(cache *Cache, groupKey string) (Direction, bool) {
	for _, prior := range cache.Get(groupKey) {
		if prior.CallDirection != DirUnknown {
			return prior.CallDirection, true
		}
	}
	return DirUnknown, false
}

func directionTable(callerInternal, destInternal bool) Direction {
	switch {
	case callerInternal && destInternal:
		return DirInternal
	case callerInternal && !destInternal:
		return DirOutgoing
	case !callerInternal && destInternal:
		return DirIncoming
	default:
		return DirTrunkToTrunk
	}
}

// Resolve runs the full direction pipeline on l: per-side classification,
// voicemail/silent-monitor overrides, the direction table, party-id
// salvage, and caller/called field assignment. l's raw fields and decoded
// companions must already be populated.
func Resolve(l *Leg, strategy Strategy, cache *Cache, groupKey string, runState *RunState, ext *extension.Classifier) {
	callerInternal, destInternal := strategy.Sides(l, cache, groupKey)

	vmNumber := runState.EffectiveVoicemailNumber()
	if global.HasBit(l.PerCallFeatureExt, cdr.BitPerCallFeatureExtVoicemail) ||
		(vmNumber != "" && (l.CalledParty == vmNumber || l.DestinationExt == vmNumber)) {
		destInternal = true
	}

	if callerInternal && l.DestinationExt == "" &&
		global.HasBit(l.PerCallFeatureExt, cdr.BitPerCallFeatureExtSilentMon) &&
		l.InLegConnectTime != "" {
		l.CallDirection = DirIncoming
		assignPartyFields(l, callerInternal, destInternal)
		return
	}

	direction := directionTable(callerInternal, destInternal)

	switch {
	case direction == DirTrunkToTrunk && l.OrigPartyID == cdr.PartyIDExternal && ext.IsExtension(l.ForwardingParty):
		direction = DirIncoming
	case direction == DirUnknown && l.OrigPartyID == cdr.PartyIDExternal && !callerInternal:
		direction = DirIncoming
	case direction == DirUnknown && l.OrigPartyID == cdr.PartyIDInternalOrigin:
		direction = DirInternal
	}

	l.CallDirection = direction
	assignPartyFields(l, callerInternal, destInternal)
}

// assignPartyFields fills the derived caller/called fields once the final
// direction is known.
func assignPartyFields(l *Leg, callerInternal, destInternal bool) {
	if callerInternal {
		l.CallerExtension = l.CallingNumber
	} else {
		l.CallerExternal = l.CallingNumber
		if l.CallDirection == DirIncoming && l.OrigPartyID == cdr.PartyIDExternal && l.ForwardingParty != "" {
			// Salvaged trunk-to-trunk call: externally sourced but routed
			// back in via an internal forwarding party, so it still gets a
			// caller extension alongside the external number.
			l.CallerExtension = l.ForwardingParty
		}
	}

	if destInternal {
		l.CalledExtension = l.DestinationExt
	} else {
		l.CalledExternal = global.OrEmpty(l.DestinationExt, l.CalledParty)
	}
}
