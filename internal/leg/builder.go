package leg

import (
	"strings"
	"time"

	"CDRGo/internal/cdr"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/extension"
	"CDRGo/internal/gid"
	"CDRGo/internal/global"
)

// Builder turns parsed records into Legs and reconciles them against the
// cache, keyed by thread-id or global call-id.
type Builder struct {
	Cache     *Cache
	RunState  *RunState
	Ext       *extension.Classifier
	Endpoints *endpoint.Classifier
	Strategy  Strategy
}

func NewBuilder(cache *Cache, runState *RunState, ext *extension.Classifier, endpoints *endpoint.Classifier) *Builder {
	return &Builder{
		Cache:     cache,
		RunState:  runState,
		Ext:       ext,
		Endpoints: endpoints,
		Strategy:  SelectStrategy(ext, endpoints),
	}
}

// SuppressedReason describes why an otherwise-parseable record produced no
// leg.
type SuppressedReason struct {
	SourceFile string
	SourceLine int
	Reason     string
}

// BuildResult is what a single record produces: at most one new/updated
// leg, or a suppression reason, never both.
type BuildResult struct {
	Leg        *Leg
	Suppressed *SuppressedReason
}

// BuildFromFullCdr implements the FullCdr branch: early feature-code
// filtering, derived-bit computation, direction resolution, HG-placeholder
// reconciliation, and cache insertion.
func (b *Builder) BuildFromFullCdr(rec *cdr.FullCdr) BuildResult {
	if strings.Contains(rec.DialedNumber, "*44") || strings.Contains(rec.DialedNumber, "#44") {
		return BuildResult{Suppressed: &SuppressedReason{
			SourceFile: rec.SourceFile(),
			SourceLine: rec.SourceLine(),
			Reason:     "feature code *44/#44 in dialed_number",
		}}
	}

	l := &Leg{
		GlobalCallID:      rec.GlobalCallID(),
		ThreadID:          global.OrEmpty(rec.ThreadIDSeq, rec.ThreadIDNode),
		GidSequence:       rec.GidSequence,
		Timestamp:         rec.Timestamp(),
		CallingNumber:     rec.CallingNumber,
		CalledParty:       rec.CalledParty,
		DestinationExt:    rec.DestinationExt,
		DialedNumber:      rec.DialedNumber,
		ForwardingParty:   rec.ForwardingParty,
		IngressEndpoint:   rec.IngressEndpoint,
		EgressEndpoint:    rec.EgressEndpoint,
		Duration:          rec.Duration,
		CallAnswerTime:    rec.CallAnswerTime,
		InLegConnectTime:  rec.InLegConnectTime,
		OutLegConnectTime: rec.OutLegConnectTime,
		OutLegReleaseTime: rec.OutLegReleaseTime,
		CallReleaseTime:   rec.CallReleaseTime,
		CauseCode:         rec.CauseCode,
		CauseCodeText:     cdr.DecodeCauseCode(rec.CauseCode),
		AttemptIndicator:  rec.AttemptIndicator,
		PerCallFeature:    rec.PerCallFeature,
		PerCallFeatureExt: rec.PerCallFeatureExt,
		CallEventIndicator: rec.CallEventIndicator,
		OrigPartyID:        rec.OrigPartyID,
		OrigPartyIDText:    cdr.DecodePartyID(rec.OrigPartyID),
		TermPartyID:        rec.TermPartyID,
		TermPartyIDText:    cdr.DecodePartyID(rec.TermPartyID),
		MediaType:          rec.MediaType,
		SourceFile:         rec.SourceFile(),
		SourceLine:         rec.SourceLine(),
	}
	l.PerCallFeatureText = cdr.DecodePerCallFeature(rec.PerCallFeature)
	l.PerCallFeatureExtText = cdr.DecodePerCallFeatureExt(rec.PerCallFeatureExt)
	l.CallEventIndicatorText = cdr.DecodeCallEventIndicator(rec.CallEventIndicator)

	l.IsAnswered = (l.Duration > 0 && l.CauseCode == cdr.CauseNormalClearing) ||
		l.PerCallFeature == 8 ||
		(l.MediaType == 1 && l.CauseCode == cdr.CauseNormalClearing)
	l.RingTime = ringTimeSeconds(l.InLegConnectTime, l.CallAnswerTime)
	l.IsForwarded = l.ForwardingParty != ""
	l.IsPickup = global.HasBit(l.CallEventIndicator, cdr.BitCallEventIndicatorPickup)

	if global.HasBit(l.PerCallFeatureExt, cdr.BitPerCallFeatureExtVoicemail) && l.CalledParty != "" {
		b.RunState.MaybeDetectVoicemail(l.CalledParty)
	}
	vm := b.RunState.EffectiveVoicemailNumber()
	l.IsVoicemail = global.HasBit(l.PerCallFeatureExt, cdr.BitPerCallFeatureExtVoicemail) ||
		(vm != "" && l.CalledParty == vm)

	if b.Ext.IsEmpty() {
		if l.OrigPartyID == cdr.PartyIDInternalOrigin {
			b.Ext.RecordCandidate(l.CallingNumber, true)
		}
		if l.TermPartyID == cdr.PartyIDInternalTermination {
			b.Ext.RecordCandidate(l.DestinationExt, false)
		}
	}

	groupKey := global.OrEmpty(rec.ThreadIDSeq, rec.ThreadIDNode, rec.GlobalCallID())

	Resolve(l, b.Strategy, b.Cache, groupKey, b.RunState, b.Ext)

	b.reconcileHuntGroupPlaceholders(l, groupKey, rec.GlobalCallID())

	if hex := gid.HexSuffix(rec.GlobalCallID()); hex != "" && l.ThreadID != "" {
		b.Cache.LinkGidHexToThread(hex, l.ThreadID)
	}

	b.Cache.Store(groupKey, l)
	return BuildResult{Leg: l}
}

func (b *Builder) reconcileHuntGroupPlaceholders(l *Leg, groupKey, globalCallID string) {
	keys := []string{groupKey, globalCallID}
	if hex := gid.HexSuffix(globalCallID); hex != "" {
		if resolved, ok := b.Cache.FullGidForHex(hex); ok {
			keys = append(keys, resolved)
		}
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		for _, placeholder := range b.Cache.Peek(k) {
			if placeholder.IsHgOnly && l.HuntGroupNumber == "" && placeholder.HuntGroupNumber != "" {
				l.HuntGroupNumber = placeholder.HuntGroupNumber
				b.Cache.RemoveOne(k, placeholder.InLegConnectTime)
			}
		}
	}
}

// BuildFromHuntGroup implements the HuntGroup branch: register the routing
// number, fill any legs already present for this GID, or park an is_hg_only
// placeholder for later reconciliation.
func (b *Builder) BuildFromHuntGroup(rec *cdr.HuntGroup) BuildResult {
	b.RunState.AddRoutingNumber(rec.HuntGroupNumber)

	targets := b.Cache.Peek(rec.GlobalCallID())
	if len(targets) == 0 {
		if hex := gid.HexSuffix(rec.GlobalCallID()); hex != "" {
			if threadID, ok := b.Cache.ThreadForGidHex(hex); ok {
				targets = b.Cache.Peek(threadID)
			}
		}
	}

	if len(targets) > 0 {
		for _, existing := range targets {
			if existing.HuntGroupNumber == "" {
				existing.HuntGroupNumber = rec.HuntGroupNumber
			}
		}
		return BuildResult{}
	}

	placeholder := &Leg{
		GlobalCallID:     rec.GlobalCallID(),
		HuntGroupNumber:  rec.HuntGroupNumber,
		IsHgOnly:         true,
		InLegConnectTime: rec.Timestamp(),
		SourceFile:       rec.SourceFile(),
		SourceLine:       rec.SourceLine(),
	}
	if hex := gid.HexSuffix(rec.GlobalCallID()); hex != "" {
		b.Cache.LinkGidHexToFullGid(hex, rec.GlobalCallID())
	}
	b.Cache.Store(rec.GlobalCallID(), placeholder)
	return BuildResult{Leg: placeholder}
}

// BuildFromCallForward implements the CallForward branch.
func (b *Builder) BuildFromCallForward(rec *cdr.CallForward) BuildResult {
	if rec.GlobalCallID() == "" {
		return BuildResult{Suppressed: &SuppressedReason{
			SourceFile: rec.SourceFile(),
			SourceLine: rec.SourceLine(),
			Reason:     "call-forward record without a global_call_id",
		}}
	}

	destInternal := b.Ext.IsExtension(rec.ForwardDestination)
	direction := DirTrunkToTrunk
	if destInternal {
		direction = DirInternal
	}

	l := &Leg{
		GlobalCallID:    rec.GlobalCallID(),
		CallingNumber:   rec.OriginatingExtension,
		CallerExtension: rec.OriginatingExtension,
		ForwardingParty: rec.OriginatingExtension,
		ForwardFromExt:  rec.OriginatingExtension,
		ForwardToExt:    rec.ForwardDestination,
		IsForwarded:     true,
		CallDirection:   direction,
		InLegConnectTime: rec.Timestamp(),
		SourceFile:      rec.SourceFile(),
		SourceLine:      rec.SourceLine(),
	}
	b.Cache.Store(rec.GlobalCallID(), l)
	return BuildResult{Leg: l}
}

// ringTimeSeconds computes call_answer_time - in_leg_connect_time in whole
// seconds when both parse as RFC3339-ish timestamps and the difference is
// non-negative.
func ringTimeSeconds(connect, answer string) *int64 {
	if connect == "" || answer == "" {
		return nil
	}
	ct, err1 := ParseTimestamp(connect)
	at, err2 := ParseTimestamp(answer)
	if err1 != nil || err2 != nil {
		return nil
	}
	diff := int64(at.Sub(ct).Seconds())
	if diff < 0 {
		return nil
	}
	return &diff
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102150405",
}

func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
