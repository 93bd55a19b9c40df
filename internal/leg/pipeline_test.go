package leg_test

import (
	"testing"

	"CDRGo/internal/cdr"
	"CDRGo/internal/endpoint"
	"CDRGo/internal/extension"
	"CDRGo/internal/leg"

	"github.com/stretchr/testify/require"
)

func newFullCdr(t *testing.T, sourceLine int) *cdr.FullCdr {
	t.Helper()
	fields := make([]string, 129)
	fields[0] = "00000000"
	fields[1] = "2024-01-02T10:00:00"
	fields[4] = "20240102100000:abc123"
	line := joinCSVFields(fields)
	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", sourceLine, line)
	require.Nil(t, fail)
	fc, ok := rec.(*cdr.FullCdr)
	require.True(t, ok)
	return fc
}

func newHuntGroup(t *testing.T, sourceLine int, globalCallID, hgNumber string) *cdr.HuntGroup {
	t.Helper()
	fields := make([]string, 12)
	fields[0] = "00000004"
	fields[1] = "2024-01-02T10:00:05"
	fields[4] = globalCallID
	fields[5] = hgNumber
	line := joinCSVFields(fields)
	p := cdr.NewParser()
	rec, fail := p.ParseLine("f.csv", sourceLine, line)
	require.Nil(t, fail)
	hg, ok := rec.(*cdr.HuntGroup)
	require.True(t, ok)
	return hg
}

func joinCSVFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}

func TestBuilder_PureInternal(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ext.Load([]string{"5000-5099"})
	ep := endpoint.New()

	rec := newFullCdr(t, 1)
	rec.CallingNumber = "5001"
	rec.DestinationExt = "5002"
	rec.Duration = 42
	rec.CauseCode = cdr.CauseNormalClearing

	cache := leg.NewCache()
	runState := leg.NewRunState("", nil)
	b := leg.NewBuilder(cache, runState, ext, ep)

	res := b.BuildFromFullCdr(rec)
	require.Nil(t, res.Suppressed)
	require.NotNil(t, res.Leg)
	require.Equal(t, leg.DirInternal, res.Leg.CallDirection)
	require.Equal(t, "5001", res.Leg.CallerExtension)
	require.Equal(t, "5002", res.Leg.CalledExtension)
	require.True(t, res.Leg.IsAnswered)
}

func TestBuilder_OutgoingToPSTN(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := endpoint.New()
	ep.Load([]endpoint.Entry{{Type: "NNITypePSTNGateway", Name: "trunk1", IPFqdn: "10.0.0.9"}})

	rec := newFullCdr(t, 2)
	rec.CallingNumber = "5001"
	rec.DestinationExt = "13055551234"
	rec.EgressEndpoint = "trunk1"
	rec.OrigPartyID = cdr.PartyIDInternalOrigin
	rec.TermPartyID = cdr.PartyIDExternal
	rec.Duration = 60
	rec.CauseCode = cdr.CauseNormalClearing

	cache := leg.NewCache()
	runState := leg.NewRunState("", nil)
	b := leg.NewBuilder(cache, runState, ext, ep)

	res := b.BuildFromFullCdr(rec)
	require.NotNil(t, res.Leg)
	require.Equal(t, leg.DirOutgoing, res.Leg.CallDirection)
	require.Equal(t, "5001", res.Leg.CallerExtension)
	require.Equal(t, "", res.Leg.CallerExternal)
	require.Equal(t, "13055551234", res.Leg.CalledExternal)
}

func TestBuilder_FeatureCodeFilter(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := endpoint.New()
	rec := newFullCdr(t, 3)
	rec.DialedNumber = "*44"

	cache := leg.NewCache()
	runState := leg.NewRunState("", nil)
	b := leg.NewBuilder(cache, runState, ext, ep)

	res := b.BuildFromFullCdr(rec)
	require.Nil(t, res.Leg)
	require.NotNil(t, res.Suppressed)
}

func TestMerge_AttemptThenAnswer(t *testing.T) {
	t.Parallel()

	runState := leg.NewRunState("", nil)
	attempt := &leg.Leg{Duration: 0, IsAnswered: false, DestinationExt: "5002", InLegConnectTime: "2024-01-02T10:00:00", SourceLine: 1}
	answer := &leg.Leg{Duration: 25, IsAnswered: true, DestinationExt: "5002", InLegConnectTime: "2024-01-02T10:00:01", SourceLine: 2, CauseCode: cdr.CauseNormalClearing}

	merged := leg.Merge([]*leg.Leg{attempt, answer}, runState)
	require.Len(t, merged, 1)
	require.Equal(t, int64(25), merged[0].Duration)
	require.True(t, merged[0].IsAnswered)
}

func TestSuppress_CMSPassThrough(t *testing.T) {
	t.Parallel()

	runState := leg.NewRunState("", nil)
	legA := &leg.Leg{CallingNumber: "A1", DestinationExt: "CMS", Duration: 0, InLegConnectTime: "t1", SourceLine: 1}
	legCMS := &leg.Leg{CallingNumber: "CMS", DestinationExt: "B1", Duration: 0, InLegConnectTime: "t2", SourceLine: 2}
	legB := &leg.Leg{CallingNumber: "CMS", DestinationExt: "B1", CalledParty: "B1", Duration: 15, IsAnswered: true, InLegConnectTime: "t3", SourceLine: 3, CauseCode: cdr.CauseNormalClearing}

	// Merge first, as the driver does: it folds the CMS->B1 attempt into its answer.
	legs := leg.Merge([]*leg.Leg{legA, legCMS, legB}, runState)
	leg.ResolveTransfers(legs)
	result := leg.Suppress(legs, runState)

	require.Len(t, result, 1)
	require.Equal(t, "B1", result[0].DestinationExt)
}

func TestDirectionResolver_VoicemailOverride(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := endpoint.New()
	rec := newFullCdr(t, 4)
	rec.CallingNumber = "5001"
	rec.CalledParty = "5099"
	rec.PerCallFeatureExt = cdr.BitPerCallFeatureExtVoicemail
	rec.OrigPartyID = cdr.PartyIDInternalOrigin

	cache := leg.NewCache()
	runState := leg.NewRunState("", nil)
	b := leg.NewBuilder(cache, runState, ext, ep)

	res := b.BuildFromFullCdr(rec)
	require.NotNil(t, res.Leg)
	require.True(t, res.Leg.IsVoicemail)
	require.Equal(t, leg.DirInternal, res.Leg.CallDirection)
	require.Equal(t, "5099", runState.EffectiveVoicemailNumber())
}

// TestBuilder_HuntGroupPlaceholder_ResolvesAcrossDifferingTimestampPrefix
// covers a HuntGroup fragment that arrives before its FullCdr and shares
// only the GID hex suffix, not the full GID: the placeholder is stored
// under the HuntGroup's own full GID, so reconciliation must resolve the
// hex back to that key rather than treating the bare hex as a cache key.
func TestBuilder_HuntGroupPlaceholder_ResolvesAcrossDifferingTimestampPrefix(t *testing.T) {
	t.Parallel()

	ext := extension.New()
	ep := endpoint.New()
	cache := leg.NewCache()
	runState := leg.NewRunState("", nil)
	b := leg.NewBuilder(cache, runState, ext, ep)

	hg := newHuntGroup(t, 1, "20240102100005:abc123", "HG42")
	hgRes := b.BuildFromHuntGroup(hg)
	require.NotNil(t, hgRes.Leg)
	require.True(t, hgRes.Leg.IsHgOnly)

	fields := make([]string, 129)
	fields[0] = "00000000"
	fields[1] = "2024-01-02T10:00:00"
	fields[4] = "20240102100000:abc123"
	p := cdr.NewParser()
	parsed, fail := p.ParseLine("f.csv", 2, joinCSVFields(fields))
	require.Nil(t, fail)
	rec, ok := parsed.(*cdr.FullCdr)
	require.True(t, ok)

	res := b.BuildFromFullCdr(rec)

	require.Nil(t, res.Suppressed)
	require.NotNil(t, res.Leg)
	require.Equal(t, "HG42", res.Leg.HuntGroupNumber)
}
