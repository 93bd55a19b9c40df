package cdr

import "strings"

// Bitmask decodings for the CDR feature/event fields. Kept as ordered slices
// (not maps) so text decoding is deterministic when multiple bits are set.
type bitLabel struct {
	Bit   int64
	Label string
}

var perCallFeatureBits = []bitLabel{
	{2, "CF-Busy"},
	{4, "CF-NoAnswer"},
	{8, "CF-Unconditional"},
	{16, "CLIR"},
	{128, "CLIP"},
	{1048576, "MaliciousCallTrace"},
}

var perCallFeatureExtBits = []bitLabel{
	{64, "CF-to-Voicemail"},
	{1024, "Call-to-MLHG"},
	{2048, "CallPickup"},
	{4096, "DirectedCallPickup"},
	{8192, "E911"},
	{16384, "SilentMonitor"},
	{1048576, "PrivateCall"},
	{2097152, "BusinessCall"},
}

var callEventIndicatorBits = []bitLabel{
	{128, "MLHG-AdvanceNoAnswer"},
	{256, "MLHG-Overflow"},
	{512, "MLHG-NightService"},
	{1024, "ForwardedFromMLHG"},
	{2048, "HeldPartyHungUp"},
	{4096, "HoldingPartyHungUp"},
	{8192, "CallPickedUp"},
	{65536, "CSTA-Deflect"},
	{1048576, "FeatureActivation"},
}

const (
	BitPerCallFeatureExtVoicemail  = 64
	BitPerCallFeatureExtMLHG       = 1024
	BitPerCallFeatureExtSilentMon  = 16384
	BitCallEventIndicatorPickup    = 8192
)

// decodeBits renders the set-bit labels for a bitmask, comma joined.
func decodeBits(mask int64, table []bitLabel) string {
	var parts []string
	for _, bl := range table {
		if mask&bl.Bit != 0 {
			parts = append(parts, bl.Label)
		}
	}
	return strings.Join(parts, ",")
}

func DecodePerCallFeature(mask int64) string    { return decodeBits(mask, perCallFeatureBits) }
func DecodePerCallFeatureExt(mask int64) string { return decodeBits(mask, perCallFeatureExtBits) }
func DecodeCallEventIndicator(mask int64) string {
	return decodeBits(mask, callEventIndicatorBits)
}

// partyIDText maps party-id codes to their GLOSSARY-defined meaning.
var partyIDText = map[int64]string{
	900: "On OpenScape",
	901: "Not on OpenScape",
	902: "On OpenScape",
	903: "Outbound on OpenScape",
	999: "Unknown",
}

func DecodePartyID(id int64) string {
	if t, ok := partyIDText[id]; ok {
		return t
	}
	return "Unknown"
}

const (
	PartyIDInternalOrigin      = 900
	PartyIDExternal            = 901
	PartyIDInternalTermination = 902
	PartyIDOutboundOnPBX       = 903
	PartyIDUnknown             = 999
)

// causeCodeText is the release-cause lookup table.
var causeCodeText = map[int64]string{
	0:   "NotSet",
	1:   "UnassignedNumber",
	16:  "NormalClearing",
	17:  "UserBusy",
	18:  "NoUserResponding",
	19:  "NoAnswer",
	20:  "SubscriberAbsent",
	21:  "CallRejected",
	23:  "Redirect",
	25:  "RoutingError",
	27:  "DestinationOutOfOrder",
	28:  "InvalidFormat",
	31:  "NormalUnspecified",
	34:  "NoCircuit",
	41:  "TemporaryFailure",
	79:  "NotImplemented",
	86:  "CallCleared",
	102: "TimerExpiry",
	128: "SessionTimerExpired",
}

func DecodeCauseCode(code int64) string {
	if t, ok := causeCodeText[code]; ok {
		return t
	}
	return "Unknown"
}

const CauseNormalClearing = 16

// DecodeAttemptIndicator maps 0 to "Attempt" and 1 to "Answer"; every
// other value renders as "Unknown".
func DecodeAttemptIndicator(v int64) string {
	switch v {
	case 0:
		return "Attempt"
	case 1:
		return "Answer"
	default:
		return "Unknown"
	}
}
