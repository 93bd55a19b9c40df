package leg

import "sync"

// RunState holds the forward-only, single-writer shared scalars for a run:
// the auto-detected voicemail pilot (first candidate wins, never unset) and
// the routing-number set (configured ∪ auto-detected, invariant 7). One
// RunState belongs to exactly one engine/core instance; hosts multiplexing
// several instances get one RunState each, so no atomics are needed under
// the single-threaded-per-instance contract.
type RunState struct {
	mu sync.Mutex

	configuredVoicemail string
	detectedVoicemail   string
	voicemailDetected   bool

	routingNumbers map[string]bool
}

func NewRunState(configuredVoicemail string, seedRoutingNumbers []string) *RunState {
	rs := &RunState{
		configuredVoicemail: configuredVoicemail,
		routingNumbers:      make(map[string]bool, len(seedRoutingNumbers)),
	}
	for _, n := range seedRoutingNumbers {
		if n != "" {
			rs.routingNumbers[n] = true
		}
	}
	return rs
}

// EffectiveVoicemailNumber returns the configured pilot if present, else the
// first auto-detected pilot of this run.
func (rs *RunState) EffectiveVoicemailNumber() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.configuredVoicemail != "" {
		return rs.configuredVoicemail
	}
	return rs.detectedVoicemail
}

// MaybeDetectVoicemail commits the first candidate it sees for the
// remainder of the run; there is no unset.
func (rs *RunState) MaybeDetectVoicemail(calledParty string) {
	if calledParty == "" {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.configuredVoicemail != "" || rs.voicemailDetected {
		return
	}
	rs.detectedVoicemail = calledParty
	rs.voicemailDetected = true
}

// ResetVoicemail exists for multi-tenant hosts that need a fresh RunState
// per tenant without discarding the instance; the correlation engine itself
// never calls it mid-run.
func (rs *RunState) ResetVoicemail() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.detectedVoicemail = ""
	rs.voicemailDetected = false
}

func (rs *RunState) IsRoutingNumber(n string) bool {
	if n == "" {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.routingNumbers[n]
}

func (rs *RunState) AddRoutingNumber(n string) {
	if n == "" {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.routingNumbers[n] = true
}

func (rs *RunState) RoutingNumbers() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]string, 0, len(rs.routingNumbers))
	for n := range rs.routingNumbers {
		out = append(out, n)
	}
	return out
}
