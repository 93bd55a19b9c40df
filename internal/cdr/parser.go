package cdr

import (
	"strings"

	"CDRGo/internal/global"
)

// headerPrefixes are the header/footer line markers, matched
// case-insensitively against the start of the line.
var headerPrefixes = []string{
	"FILENAME:", "DEVICE:", "HOSTNAME:", "FILETYPE:", "VERSION:", "CREATE:", "CLOSE:",
}

func isHeaderLine(line string) bool {
	upper := global.ASCIIToLower(line)
	for _, p := range headerPrefixes {
		if strings.HasPrefix(upper, global.ASCIIToLower(p)) {
			return true
		}
	}
	return false
}

// Parser decodes CSV lines into RawRecord variants. It is stateless and safe
// to share; all state needed for correlation lives in the leg cache
// downstream.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// ParseLine decodes one line. It returns (nil, nil) for header lines and for
// recognized-but-ignored record types (00000005 and unrecognized types);
// it returns (nil, failure) for genuinely malformed lines, and the caller is
// expected to append the failure to a per-run error list and keep going —
// a single bad line never aborts the file; it is reported and skipped.
func (p *Parser) ParseLine(sourceFile string, sourceLine int, line string) (Record, *ParseFailure) {
	if strings.TrimSpace(line) == "" || isHeaderLine(line) {
		return nil, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) == 0 {
		return nil, nil
	}

	rtype, offset, ok := detectVariant(fields)
	if !ok {
		// A line matching neither the plain nor the sequence-prefixed
		// variant is skipped, not an error.
		return nil, nil
	}

	get := func(col int) string {
		idx := offset + col - 1
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		v, _ := global.CleanField(fields[idx])
		return v
	}

	switch RecordType(rtype) {
	case TypeSupplementary:
		return nil, nil
	case TypeFullCdr:
		return p.parseFullCdr(sourceFile, sourceLine, get)
	case TypeHuntGroup:
		return p.parseHuntGroup(sourceFile, sourceLine, get)
	case TypeCallForward:
		return p.parseCallForward(sourceFile, sourceLine, get)
	default:
		return nil, nil
	}
}

// detectVariant implements the three-way branch: plain, sequence-
// prefixed, or skip.
func detectVariant(fields []string) (rtype string, offset int, ok bool) {
	first, _ := global.CleanField(fields[0])
	if plainLeadingTokens[RecordType(first)] {
		return first, 0, true
	}

	if len(fields) < 2 {
		return "", 0, false
	}
	if _, isInt := isInteger(first); !isInt {
		return "", 0, false
	}
	second, _ := global.CleanField(fields[1])
	if plainLeadingTokens[RecordType(second)] {
		return second, 1, true
	}
	return "", 0, false
}

func isInteger(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return 0, false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	return global.Str2Int64(s), true
}

func mkBase(sourceFile string, sourceLine int, timestamp, gcid string) base {
	return base{sourceFile: sourceFile, sourceLine: sourceLine, timestamp: timestamp, globalCallID: gcid}
}

func (p *Parser) parseFullCdr(sourceFile string, sourceLine int, get func(int) string) (Record, *ParseFailure) {
	gcid := get(5)
	if gcid == "" {
		return nil, &ParseFailure{SourceFile: sourceFile, SourceLine: sourceLine, Reason: "FullCdr missing GlobalCallId"}
	}

	r := &FullCdr{
		base:               mkBase(sourceFile, sourceLine, get(2), gcid),
		Duration:           global.Str2Int64(get(3)),
		CalledParty:        get(11),
		CallingNumber:      get(12),
		AttemptIndicator:   global.Str2Int64(get(18)),
		CauseCode:          global.Str2Int64(get(19)),
		OrigPartyID:        global.Str2Int64(get(40)),
		TermPartyID:        global.Str2Int64(get(41)),
		CallAnswerTime:     get(48),
		CallReleaseTime:    get(49),
		InLegConnectTime:   get(50),
		OutLegConnectTime:  get(52),
		OutLegReleaseTime:  get(53),
		PerCallFeature:     global.Str2Int64(get(64)),
		ForwardingParty:    get(65),
		DialedNumber:       get(101),
		MediaType:          global.Str2Int64(get(104)),
		PerCallFeatureExt:  global.Str2Int64(get(106)),
		CallEventIndicator: global.Str2Int64(get(107)),
		GidSequence:        get(122),
		ThreadIDNode:       get(124),
		ThreadIDSeq:        get(125),
		IngressEndpoint:    get(126),
		EgressEndpoint:     get(127),
		DestinationExt:     get(128),
	}
	return r, nil
}

func (p *Parser) parseHuntGroup(sourceFile string, sourceLine int, get func(int) string) (Record, *ParseFailure) {
	// Columns 2 (Timestamp) and 5 (GlobalCallId) share FullCdr's layout;
	// the builder needs a GID to correlate a HuntGroup fragment against.
	r := &HuntGroup{
		base:              mkBase(sourceFile, sourceLine, get(2), get(5)),
		HuntGroupNumber:   get(6),
		HGStartTime:       get(7),
		HGEndTime:         get(8),
		HGStatus1:         get(9),
		HGStatus2:         get(10),
		RoutedToExtension: get(11),
	}
	return r, nil
}

func (p *Parser) parseCallForward(sourceFile string, sourceLine int, get func(int) string) (Record, *ParseFailure) {
	// CallForward repurposes column 5 for OriginatingExtension, unlike
	// HuntGroup, so it can't reuse FullCdr's GlobalCallId column. The GID
	// rides in column 3 (FullCdr's Duration column, unused for a
	// forward-activation event) instead; Timestamp stays at column 2.
	r := &CallForward{
		base:                 mkBase(sourceFile, sourceLine, get(2), get(3)),
		ForwardType:          get(4),
		OriginatingExtension: get(5),
		ForwardDestination:   get(6),
	}
	return r, nil
}
