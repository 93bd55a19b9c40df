package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"CDRGo/internal/call"
	"CDRGo/internal/cdr"
	"CDRGo/internal/leg"
)

// MySQLSink writes finalized calls to a `legs` table instead of a CSV file,
// for hosts that want calls queryable rather than shipped as flat files.
// The table shares the CSV sink's column set; see CreateTableSQL.
type MySQLSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// CreateTableSQL is the DDL a host runs once to provision the legs table a
// MySQLSink writes into. Column order matches the CSV column layout.
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS legs (
	id                     BIGINT AUTO_INCREMENT PRIMARY KEY,
	start_date             VARCHAR(16),
	start_time             VARCHAR(16),
	ring_time              BIGINT NULL,
	duration               BIGINT,
	call_direction         VARCHAR(16),
	extension              VARCHAR(64),
	transfer_from          VARCHAR(64),
	destination_ext        VARCHAR(64),
	transfer_to            VARCHAR(64),
	hunt_group_number      VARCHAR(64),
	is_answered            BOOLEAN,
	is_pickup              BOOLEAN,
	is_forwarded           BOOLEAN,
	is_voicemail           BOOLEAN,
	ingress_endpoint       VARCHAR(255),
	egress_endpoint        VARCHAR(255),
	global_call_id         VARCHAR(64),
	thread_id              VARCHAR(64),
	orig_party_id          BIGINT,
	orig_party_id_text     VARCHAR(32),
	term_party_id          BIGINT,
	term_party_id_text     VARCHAR(32),
	cause_code             BIGINT,
	cause_code_text        VARCHAR(32),
	per_call_feature       BIGINT,
	per_call_feature_text  VARCHAR(255),
	attempt_indicator      BIGINT,
	attempt_indicator_text VARCHAR(32),
	per_call_feature_ext      BIGINT,
	per_call_feature_ext_text VARCHAR(255),
	call_event_indicator      BIGINT,
	call_event_indicator_text VARCHAR(255),
	caller_extension       VARCHAR(64),
	caller_external        VARCHAR(64),
	called_extension       VARCHAR(64),
	called_external        VARCHAR(64),
	dialed_ani             VARCHAR(64),
	original_dialed_digits VARCHAR(64),
	called_party           VARCHAR(64),
	calling_number         VARCHAR(64),
	forwarding_party       VARCHAR(64),
	forward_from_ext       VARCHAR(64),
	forward_to_ext         VARCHAR(64),
	leg_index              INT,
	call_answer_time       VARCHAR(32),
	in_leg_connect_time    VARCHAR(32),
	out_leg_release_time   VARCHAR(32),
	out_leg_connect_time   VARCHAR(32),
	call_release_time      VARCHAR(32),
	is_hg_only             BOOLEAN,
	source_file            VARCHAR(255),
	source_line            INT,
	gid_sequence           VARCHAR(64),
	INDEX idx_global_call_id (global_call_id)
)`

const insertLegSQL = `INSERT INTO legs (
	start_date, start_time, ring_time, duration, call_direction, extension,
	transfer_from, destination_ext, transfer_to, hunt_group_number,
	is_answered, is_pickup, is_forwarded, is_voicemail,
	ingress_endpoint, egress_endpoint, global_call_id, thread_id,
	orig_party_id, orig_party_id_text, term_party_id, term_party_id_text,
	cause_code, cause_code_text, per_call_feature, per_call_feature_text,
	attempt_indicator, attempt_indicator_text, per_call_feature_ext, per_call_feature_ext_text,
	call_event_indicator, call_event_indicator_text,
	caller_extension, caller_external, called_extension, called_external,
	dialed_ani, original_dialed_digits, called_party, calling_number,
	forwarding_party, forward_from_ext, forward_to_ext, leg_index,
	call_answer_time, in_leg_connect_time, out_leg_release_time, out_leg_connect_time, call_release_time,
	is_hg_only, source_file, source_line, gid_sequence
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// NewMySQLSink opens dsn, ensures the legs table exists, and prepares the
// insert statement WriteCall reuses.
func NewMySQLSink(ctx context.Context, dsn string) (*MySQLSink, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening MySQL sink: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MySQL sink: %w", err)
	}
	if _, err := db.ExecContext(ctx, CreateTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("provisioning legs table: %w", err)
	}
	stmt, err := db.PrepareContext(ctx, insertLegSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing leg insert: %w", err)
	}
	return &MySQLSink{db: db, stmt: stmt}, nil
}

// WriteCall inserts one row per surviving leg of c inside a single
// transaction, so a call's rows never land partially on a write failure.
func (s *MySQLSink) WriteCall(c *call.Call) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning leg insert transaction: %w", err)
	}
	stmt := tx.StmtContext(ctx, s.stmt)
	for _, l := range c.Legs {
		if err := insertLeg(ctx, stmt, c, l); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting leg for %s: %w", c.GlobalCallID, err)
		}
	}
	return tx.Commit()
}

func insertLeg(ctx context.Context, stmt *sql.Stmt, c *call.Call, l *leg.Leg) error {
	startDate, startTime := splitTimestamp(l.Timestamp)
	_, err := stmt.ExecContext(ctx,
		startDate, startTime, ringTimeArg(l.RingTime), l.Duration, l.CallDirection.String(), l.Extension,
		l.TransferFrom, l.DestinationExt, l.TransferTo, l.HuntGroupNumber,
		l.IsAnswered, l.IsPickup, l.IsForwarded, l.IsVoicemail,
		l.IngressEndpoint, l.EgressEndpoint, l.GlobalCallID, l.ThreadID,
		l.OrigPartyID, l.OrigPartyIDText, l.TermPartyID, l.TermPartyIDText,
		l.CauseCode, l.CauseCodeText, l.PerCallFeature, l.PerCallFeatureText,
		l.AttemptIndicator, cdr.DecodeAttemptIndicator(l.AttemptIndicator), l.PerCallFeatureExt, l.PerCallFeatureExtText,
		l.CallEventIndicator, l.CallEventIndicatorText,
		l.CallerExtension, l.CallerExternal, l.CalledExtension, l.CalledExternal,
		l.DialedAni, c.OriginalDialedDigits, l.CalledParty, l.CallingNumber,
		l.ForwardingParty, l.ForwardFromExt, l.ForwardToExt, l.LegIndex,
		l.CallAnswerTime, l.InLegConnectTime, l.OutLegReleaseTime, l.OutLegConnectTime, l.CallReleaseTime,
		l.IsHgOnly, l.SourceFile, l.SourceLine, l.GidSequence,
	)
	return err
}

func ringTimeArg(rt *int64) any {
	if rt == nil {
		return nil
	}
	return *rt
}

// Close releases the prepared statement and the underlying pool.
func (s *MySQLSink) Close() error {
	s.stmt.Close()
	return s.db.Close()
}
