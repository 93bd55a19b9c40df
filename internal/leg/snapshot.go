package leg

// PreSuppressionInfo is a snapshot of the merged-but-not-yet-suppressed leg
// list, taken before the routing-leg suppressor mutates any surviving leg
// in place. The call finalizer needs a few of these values (the call's
// first-leg destination before CMS/pilot legs are folded away, and the
// first dialed number ever seen) after suppression has already overwritten
// them on the surviving pointers.
type PreSuppressionInfo struct {
	DestinationExts []string
	Answered        []bool
	DialedNumbers   []string
}

func Snapshot(legs []*Leg) PreSuppressionInfo {
	info := PreSuppressionInfo{
		DestinationExts: make([]string, len(legs)),
		Answered:        make([]bool, len(legs)),
		DialedNumbers:   make([]string, len(legs)),
	}
	for i, l := range legs {
		info.DestinationExts[i] = l.DestinationExt
		info.Answered[i] = l.IsAnswered
		info.DialedNumbers[i] = l.DialedNumber
	}
	return info
}
