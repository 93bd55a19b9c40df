// Package call implements the finalizer that turns a suppressed, ordered
// leg list into one or two emitted Calls: direction promotion, voicemail
// and internal-call adjustments, hunt-group propagation, the per-call
// summary fields, and the trunk-to-trunk split into T2TIn/T2TOut halves.
package call

import (
	"CDRGo/internal/cdr"
	"CDRGo/internal/extension"
	"CDRGo/internal/global"
	"CDRGo/internal/leg"
)

// Call is the finalized aggregate emitted to a sink.
type Call struct {
	GlobalCallID         string
	ThreadID             string
	CallDirection        leg.Direction
	TotalLegs            int
	IsAnswered           bool
	TotalDuration        int64
	CallerExtension      string
	CallerExternal       string
	DialedNumber         string
	OriginalDialedDigits string
	HuntGroupNumber      string
	Extension            string
	Legs                 []*leg.Leg
}

// Finalize runs the finalizer over legs (already merged, transfer-resolved
// and suppressed) and returns one Call, or two when a trunk-to-trunk split
// applies. pre is the snapshot taken right after merging, before
// suppression touched any surviving leg.
func Finalize(pre leg.PreSuppressionInfo, legs []*leg.Leg, runState *leg.RunState, ext *extension.Classifier) []*Call {
	if len(legs) == 0 {
		return nil
	}

	direction := leg.DirUnknown
	for _, l := range legs {
		direction = leg.MoreExternal(direction, l.CallDirection)
	}

	callerExternal, callerExtension := callerFields(legs)
	if callerExternal != "" && callerExtension == "" && !anyInternalDestination(legs) {
		direction = leg.DirTrunkToTrunk
	}

	// Found before destination_ext gets cleared by the extension/destExt
	// swap below; the trunk-to-trunk split needs the original value.
	var splitInternalExt string
	if direction == leg.DirTrunkToTrunk {
		splitInternalExt = findInternalExtension(legs, ext)
	}

	adjustVoicemail(legs, runState.EffectiveVoicemailNumber())
	applyInternalDialedNumberRule(legs)
	propagateHuntGroup(legs)

	totalDuration, isAnswered, dialedNumber := summaryFields(legs)
	originalDialedDigits := firstNonEmpty(pre.DialedNumbers)
	if originalDialedDigits == "" {
		originalDialedDigits = dialedNumber
	}

	extensionField := computeCallExtension(direction, pre, legs, callerExtension)

	applyDialedAni(legs, computeExternalCaller(legs, runState), computeExternalDest(legs))
	applyExtensionSwap(legs, direction, callerExtension)
	applyPickupCleanup(legs)

	huntGroup := ""
	for _, l := range legs {
		if l.HuntGroupNumber != "" {
			huntGroup = l.HuntGroupNumber
			break
		}
	}

	c := &Call{
		GlobalCallID:         legs[0].GlobalCallID,
		ThreadID:             legs[0].ThreadID,
		CallDirection:        direction,
		TotalLegs:            len(legs),
		IsAnswered:           isAnswered,
		TotalDuration:        totalDuration,
		CallerExtension:      callerExtension,
		CallerExternal:       callerExternal,
		DialedNumber:         dialedNumber,
		OriginalDialedDigits: originalDialedDigits,
		HuntGroupNumber:      huntGroup,
		Extension:            extensionField,
		Legs:                 legs,
	}

	return maybeSplitTrunkToTrunk(c, splitInternalExt)
}

func callerFields(legs []*leg.Leg) (external, extension string) {
	for _, l := range legs {
		if l.CallerExternal != "" {
			external = l.CallerExternal
		}
		if l.CallerExtension != "" {
			extension = l.CallerExtension
		}
	}
	return external, extension
}

func anyInternalDestination(legs []*leg.Leg) bool {
	for _, l := range legs {
		if l.CalledExtension != "" {
			return true
		}
	}
	return false
}

func adjustVoicemail(legs []*leg.Leg, effectiveVoicemail string) {
	for _, l := range legs {
		if !l.IsVoicemail {
			continue
		}
		if !l.IsAnswered && l.Duration == 0 && l.ForwardingParty != "" {
			l.DestinationExt = l.ForwardingParty
			l.CalledExtension = l.ForwardingParty
			continue
		}
		l.DestinationExt = effectiveVoicemail
		l.CalledExtension = effectiveVoicemail
	}
}

func applyInternalDialedNumberRule(legs []*leg.Leg) {
	for _, l := range legs {
		if l.CallDirection == leg.DirInternal {
			l.DialedNumber = l.DestinationExt
		}
	}
}

func propagateHuntGroup(legs []*leg.Leg) {
	propagated := false
	var current string
	for _, l := range legs {
		if l.IsVoicemail {
			continue
		}
		if l.HuntGroupNumber != "" {
			current = l.HuntGroupNumber
			continue
		}
		if current != "" {
			l.HuntGroupNumber = current
			propagated = true
		}
	}
	if propagated {
		return
	}
	for _, l := range legs {
		if !global.HasBit(l.PerCallFeatureExt, cdr.BitPerCallFeatureExtMLHG) || l.CalledParty == "" {
			continue
		}
		for _, other := range legs {
			if other.HuntGroupNumber == "" {
				other.HuntGroupNumber = l.CalledParty
			}
		}
	}
}

func summaryFields(legs []*leg.Leg) (totalDuration int64, isAnswered bool, dialedNumber string) {
	for _, l := range legs {
		if l.IsAnswered {
			isAnswered = true
			if l.Duration > totalDuration {
				totalDuration = l.Duration
			}
		}
		if dialedNumber == "" && l.DialedNumber != "" {
			dialedNumber = l.DialedNumber
		}
	}
	return totalDuration, isAnswered, dialedNumber
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func computeCallExtension(direction leg.Direction, pre leg.PreSuppressionInfo, legs []*leg.Leg, callerExtension string) string {
	switch direction {
	case leg.DirIncoming:
		if len(pre.DestinationExts) > 0 && pre.DestinationExts[0] != "" {
			return pre.DestinationExts[0]
		}
		for i, dest := range pre.DestinationExts {
			if pre.Answered[i] && dest != "" {
				return dest
			}
		}
		if n := len(pre.DestinationExts); n > 0 {
			return pre.DestinationExts[n-1]
		}
		return ""
	case leg.DirOutgoing, leg.DirInternal:
		return callerExtension
	case leg.DirTrunkToTrunk:
		for _, l := range legs {
			if l.ForwardingParty != "" {
				return l.ForwardingParty
			}
		}
		return callerExtension
	default:
		return callerExtension
	}
}

func computeExternalCaller(legs []*leg.Leg, runState *leg.RunState) string {
	for _, l := range legs {
		if l.OrigPartyID == cdr.PartyIDExternal && l.CallerExternal != "" && !runState.IsRoutingNumber(l.CallerExternal) {
			return l.CallerExternal
		}
	}
	return ""
}

func computeExternalDest(legs []*leg.Leg) string {
	for _, l := range legs {
		if l.CalledExternal != "" {
			return l.CalledExternal
		}
	}
	return ""
}

func applyDialedAni(legs []*leg.Leg, externalCaller, externalDest string) {
	for _, l := range legs {
		switch l.CallDirection {
		case leg.DirIncoming:
			l.DialedAni = externalCaller
		case leg.DirOutgoing, leg.DirTrunkToTrunk:
			l.DialedAni = global.OrEmpty(externalDest, l.DialedNumber)
		default:
			l.DialedAni = l.DialedNumber
		}
	}
}

func applyExtensionSwap(legs []*leg.Leg, direction leg.Direction, callCallerExtension string) {
	for _, l := range legs {
		if l.CallDirection == leg.DirInternal {
			l.Extension = callCallerExtension
			if l.DestinationExt == "" {
				l.DestinationExt = l.CalledParty
			}
			continue
		}
		l.Extension = global.OrEmpty(l.DestinationExt, l.CalledParty)
		if l.CallDirection == leg.DirOutgoing {
			l.Extension = l.CallerExtension
		}
		l.DestinationExt = ""
	}
}

func applyPickupCleanup(legs []*leg.Leg) {
	for _, l := range legs {
		if l.IsPickup && l.TransferFrom != "" {
			l.TransferFrom = ""
		}
	}
}

// maybeSplitTrunkToTrunk implements the T2TIn/T2TOut split: a
// TrunkToTrunk call that actually pivots through an internal extension
// (a forwarding party, or — in discovery mode — a party-id 900/902 number)
// is emitted as two single-leg synthetic calls instead of one.
func maybeSplitTrunkToTrunk(c *Call, internalExt string) []*Call {
	if c.CallDirection != leg.DirTrunkToTrunk || internalExt == "" {
		return []*Call{c}
	}

	first := *c.Legs[0]
	externalCaller := global.OrEmpty(c.CallerExternal, first.CallerExternal)
	externalDest := computeExternalDest(c.Legs)

	tin := first
	tin.CallDirection = leg.DirT2TIn
	tin.Extension = internalExt
	tin.DialedNumber = internalExt
	tin.DialedAni = externalCaller
	tin.TransferFrom = ""
	tin.CallerExternal = externalCaller
	tin.LegIndex = 1

	tout := first
	tout.CallDirection = leg.DirT2TOut
	tout.Extension = internalExt
	tout.TransferFrom = internalExt
	tout.DialedNumber = externalDest
	tout.DialedAni = externalDest
	tout.CalledExternal = externalDest
	tout.LegIndex = 1

	callIn := &Call{
		GlobalCallID:         c.GlobalCallID,
		ThreadID:             c.ThreadID,
		CallDirection:        leg.DirT2TIn,
		TotalLegs:            1,
		IsAnswered:           c.IsAnswered,
		TotalDuration:        c.TotalDuration,
		CallerExternal:       externalCaller,
		DialedNumber:         internalExt,
		OriginalDialedDigits: c.OriginalDialedDigits,
		HuntGroupNumber:      c.HuntGroupNumber,
		Extension:            internalExt,
		Legs:                 []*leg.Leg{&tin},
	}
	callOut := &Call{
		GlobalCallID:         c.GlobalCallID + "_out",
		ThreadID:             c.ThreadID,
		CallDirection:        leg.DirT2TOut,
		TotalLegs:            1,
		IsAnswered:           c.IsAnswered,
		TotalDuration:        c.TotalDuration,
		CallerExtension:      internalExt,
		DialedNumber:         externalDest,
		OriginalDialedDigits: c.OriginalDialedDigits,
		HuntGroupNumber:      c.HuntGroupNumber,
		Extension:            internalExt,
		Legs:                 []*leg.Leg{&tout},
	}
	return []*Call{callIn, callOut}
}

func findInternalExtension(legs []*leg.Leg, ext *extension.Classifier) string {
	for _, l := range legs {
		if l.ForwardingParty != "" && ext.IsExtension(l.ForwardingParty) {
			return l.ForwardingParty
		}
	}
	if ext.IsEmpty() {
		for _, l := range legs {
			if l.OrigPartyID == cdr.PartyIDInternalOrigin && l.CallingNumber != "" {
				return l.CallingNumber
			}
			if l.TermPartyID == cdr.PartyIDInternalTermination && l.DestinationExt != "" {
				return l.DestinationExt
			}
		}
	}
	return ""
}
