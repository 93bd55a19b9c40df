package leg

import "CDRGo/internal/global"

// ResolveTransfers computes transfer_from and transfer_to across an
// already-merged, ordered leg list. transfer_from is computed left to
// right (each leg but the first may inherit its predecessor's value);
// transfer_to then looks one leg ahead, so it runs as a second pass once
// every transfer_from is known.
func ResolveTransfers(legs []*Leg) {
	if len(legs) == 0 {
		return
	}
	originalCaller := legs[0].CallingNumber
	for i, l := range legs {
		l.TransferFrom = computeTransferFrom(l, i, legs, originalCaller)
	}
	for i, l := range legs {
		var next *Leg
		if i+1 < len(legs) {
			next = legs[i+1]
		}
		l.TransferTo = computeTransferTo(l, next)
	}
}

func computeTransferFrom(l *Leg, i int, legs []*Leg, originalCaller string) string {
	dest := l.DestinationExt
	switch {
	case l.CalledParty != "" && l.CalledParty != l.CallingNumber && l.CalledParty != dest && dest != "" && !l.IsVoicemail:
		return l.CalledParty
	case l.ForwardingParty != "" && !(l.IsVoicemail && !l.IsAnswered && l.Duration == 0):
		return l.ForwardingParty
	case l.CallingNumber != "" && l.CallingNumber != originalCaller:
		return l.CallingNumber
	case l.CalledParty != "" && l.CalledParty != dest && !l.IsVoicemail:
		return l.CalledParty
	default:
		if i > 0 {
			return legs[i-1].TransferFrom
		}
		return ""
	}
}

func computeTransferTo(l *Leg, next *Leg) string {
	if l.IsVoicemail && l.IsAnswered {
		return ""
	}
	if l.IsVoicemail && !l.IsAnswered && next != nil && next.IsVoicemail {
		return next.CalledParty
	}
	if next != nil && next.IsVoicemail {
		return next.CalledParty
	}
	if next == nil {
		return ""
	}
	result := global.OrEmpty(next.TransferFrom, next.DestinationExt, next.CalledParty)
	if result == l.TransferFrom || result == l.DestinationExt {
		result = global.OrEmpty(next.DestinationExt, next.CalledParty)
	}
	return result
}
