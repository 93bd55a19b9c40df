// Package sink provides LegSink implementations: a CSV file writer for the
// canonical leg stream, and an optional MySQL table writer for hosts that
// want calls landed in a database instead of a file.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"CDRGo/internal/call"
	"CDRGo/internal/cdr"
	"CDRGo/internal/leg"
)

// Columns is the stable, ordered leg column layout every CSVSink row
// follows. Column order here is the output contract; do not reorder.
var Columns = []string{
	"StartDate", "StartTime", "RingTime", "Duration", "CallDirection",
	"Extension", "TransferFrom", "DestinationExt", "TransferTo", "HuntGroupNumber",
	"IsAnswered", "IsPickup", "IsForwarded", "IsVoicemail",
	"IngressEndpoint", "EgressEndpoint", "GlobalCallId", "ThreadId",
	"OrigPartyId", "OrigPartyIdText", "TermPartyId", "TermPartyIdText",
	"CauseCode", "CauseCodeText", "PerCallFeature", "PerCallFeatureText",
	"AttemptIndicator", "AttemptIndicatorText", "PerCallFeatureExt", "PerCallFeatureExtText",
	"CallEventIndicator", "CallEventIndicatorText",
	"CallerExtension", "CallerExternal", "CalledExtension", "CalledExternal",
	"DialedAni", "OriginalDialedDigits", "CalledParty", "CallingNumber",
	"ForwardingParty", "ForwardFromExt", "ForwardToExt", "LegIndex",
	"CallAnswerTime", "InLegConnectTime", "OutLegReleaseTime", "OutLegConnectTime", "CallReleaseTime",
	"IsHgOnly", "SourceFile", "SourceLine", "GidSequence",
}

// CSVSink writes finalized calls as one row per surviving leg to an RFC
// 4180 CSV file, UTF-8 with a leading BOM.
type CSVSink struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// NewCSVSink creates (or truncates) path, writes the UTF-8 BOM and header
// row, and returns a sink ready for WriteCall.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating CSV sink %s: %w", path, err)
	}
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing BOM to %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing CSV header to %s: %w", path, err)
	}
	return &CSVSink{f: f, w: w}, nil
}

// WriteCall appends one row per leg of c, in leg order.
func (s *CSVSink) WriteCall(c *call.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range c.Legs {
		if err := s.w.Write(legRow(c, l)); err != nil {
			return fmt.Errorf("writing leg row for %s: %w", c.GlobalCallID, err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes any buffered rows and closes the underlying file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func legRow(c *call.Call, l *leg.Leg) []string {
	startDate, startTime := splitTimestamp(l.Timestamp)
	return []string{
		startDate,
		startTime,
		formatRingTime(l.RingTime),
		strconv.FormatInt(l.Duration, 10),
		l.CallDirection.String(),
		l.Extension,
		l.TransferFrom,
		l.DestinationExt,
		l.TransferTo,
		l.HuntGroupNumber,
		strconv.FormatBool(l.IsAnswered),
		strconv.FormatBool(l.IsPickup),
		strconv.FormatBool(l.IsForwarded),
		strconv.FormatBool(l.IsVoicemail),
		l.IngressEndpoint,
		l.EgressEndpoint,
		l.GlobalCallID,
		l.ThreadID,
		strconv.FormatInt(l.OrigPartyID, 10),
		l.OrigPartyIDText,
		strconv.FormatInt(l.TermPartyID, 10),
		l.TermPartyIDText,
		strconv.FormatInt(l.CauseCode, 10),
		l.CauseCodeText,
		strconv.FormatInt(l.PerCallFeature, 10),
		l.PerCallFeatureText,
		strconv.FormatInt(l.AttemptIndicator, 10),
		cdr.DecodeAttemptIndicator(l.AttemptIndicator),
		strconv.FormatInt(l.PerCallFeatureExt, 10),
		l.PerCallFeatureExtText,
		strconv.FormatInt(l.CallEventIndicator, 10),
		l.CallEventIndicatorText,
		l.CallerExtension,
		l.CallerExternal,
		l.CalledExtension,
		l.CalledExternal,
		l.DialedAni,
		c.OriginalDialedDigits,
		l.CalledParty,
		l.CallingNumber,
		l.ForwardingParty,
		l.ForwardFromExt,
		l.ForwardToExt,
		fmt.Sprintf("%08d", l.LegIndex),
		l.CallAnswerTime,
		l.InLegConnectTime,
		l.OutLegReleaseTime,
		l.OutLegConnectTime,
		l.CallReleaseTime,
		strconv.FormatBool(l.IsHgOnly),
		l.SourceFile,
		strconv.Itoa(l.SourceLine),
		l.GidSequence,
	}
}

func formatRingTime(rt *int64) string {
	if rt == nil {
		return ""
	}
	return strconv.FormatInt(*rt, 10)
}

// splitTimestamp turns a raw record timestamp into (date, time) using the
// same layouts the builder accepts; an unparseable timestamp yields two
// empty columns rather than a malformed one.
func splitTimestamp(ts string) (date, clock string) {
	if ts == "" {
		return "", ""
	}
	t, err := leg.ParseTimestamp(ts)
	if err != nil {
		return "", ""
	}
	return t.Format("2006-01-02"), t.Format("15:04:05")
}
