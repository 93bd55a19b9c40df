package leg

// Merge collapses attempt/answer pairs within an already-ordered leg list:
// an unanswered zero-duration attempt immediately followed by the answered
// leg that actually carried the call is folded into one leg.
func Merge(legs []*Leg, runState *RunState) []*Leg {
	out := make([]*Leg, len(legs))
	copy(out, legs)

	i := 0
	for i < len(out)-1 {
		cur, next := out[i], out[i+1]
		if shouldMerge(cur, next, runState) {
			mergeInto(cur, next)
			out = append(out[:i+1], out[i+2:]...)
			continue
		}
		i++
	}
	reindex(out)
	return out
}

func shouldMerge(cur, next *Leg, runState *RunState) bool {
	if cur.Duration != 0 || cur.IsAnswered {
		return false
	}
	if !next.IsAnswered || next.Duration <= 0 {
		return false
	}
	if cur.effectiveDestination() != next.effectiveDestination() {
		return false
	}
	if next.IsVoicemail {
		return false
	}
	if next.ForwardingParty != "" && !runState.IsRoutingNumber(next.ForwardingParty) {
		return false
	}
	return true
}

func mergeInto(cur, next *Leg) {
	if next.SourceFile != "" && next.SourceFile != cur.SourceFile {
		cur.SourceFile = cur.SourceFile + "+" + next.SourceFile
	}
	cur.Duration = next.Duration
	cur.IsAnswered = next.IsAnswered
	cur.CauseCode = next.CauseCode
	cur.CauseCodeText = next.CauseCodeText
	cur.CallAnswerTime = next.CallAnswerTime
	cur.CallReleaseTime = next.CallReleaseTime
	cur.OutLegReleaseTime = next.OutLegReleaseTime
	cur.RingTime = ringTimeSeconds(cur.InLegConnectTime, cur.CallAnswerTime)

	if next.IsForwarded {
		cur.IsForwarded = true
		if cur.ForwardingParty == "" {
			cur.ForwardingParty = next.ForwardingParty
		}
	}
	cur.IsPickup = cur.IsPickup || next.IsPickup

	cur.CallDirection = MoreExternal(cur.CallDirection, next.CallDirection)
}

// reindex reassigns contiguous 1-based LegIndex values after a merge or
// suppression pass changes the leg count.
func reindex(legs []*Leg) {
	for i, l := range legs {
		l.LegIndex = i + 1
	}
}
