package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// PostgresStore mirrors Store onto five Postgres tables: devices,
// commands, telemetry_readings, heartbeats, device_shadows. It is never
// the sole source of truth — see DualStore — so its own reads are used
// only by operational tooling outside the hot path.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against connString and applies
// the pool-sizing conventions from options.DatabaseOptions.
func NewPostgresStore(ctx context.Context, connString string, maxOpenConns int32, connMaxLifetime time.Duration) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = maxOpenConns
	cfg.MaxConnLifetime = connMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() { p.pool.Close() }

var _ Store = (*PostgresStore)(nil)

// Schema is the DDL for the five tables this store mirrors. Callers that
// want the cloud bridge to manage its own schema can run this at
// startup; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id      TEXT PRIMARY KEY,
	fleet_id       TEXT NOT NULL,
	status         TEXT NOT NULL,
	hardware_type  TEXT NOT NULL,
	vin            TEXT,
	last_heartbeat TIMESTAMPTZ,
	metadata       JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
	correlation_id   UUID PRIMARY KEY,
	command_id       UUID,
	fleet_id         TEXT NOT NULL,
	device_id        TEXT NOT NULL,
	natural_language TEXT NOT NULL,
	parsed_intent    JSONB,
	initiated_by     TEXT NOT NULL,
	status           TEXT NOT NULL,
	response_text    TEXT,
	response_data    JSONB,
	latency_ms       BIGINT,
	error            TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	responded_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS telemetry_readings (
	id            BIGSERIAL PRIMARY KEY,
	device_id     TEXT NOT NULL,
	time          TIMESTAMPTZ NOT NULL,
	metric_name   TEXT NOT NULL,
	value_numeric DOUBLE PRECISION,
	value_text    TEXT,
	value_json    JSONB,
	unit          TEXT,
	source        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS heartbeats (
	id            BIGSERIAL PRIMARY KEY,
	device_id     TEXT NOT NULL,
	fleet_id      TEXT NOT NULL,
	uptime_secs   BIGINT NOT NULL,
	ollama_status TEXT NOT NULL,
	can_status    TEXT NOT NULL,
	agent_version TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS device_shadows (
	device_id    TEXT NOT NULL,
	shadow_name  TEXT NOT NULL,
	reported     JSONB NOT NULL,
	desired      JSONB NOT NULL,
	version      BIGINT NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (device_id, shadow_name)
);
`

// Migrate applies Schema against p's pool.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, Schema)
	return err
}

func (p *PostgresStore) UpsertDevice(ctx context.Context, d protocol.DeviceRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO devices (device_id, fleet_id, status, hardware_type, vin, last_heartbeat, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (device_id) DO UPDATE SET
			fleet_id = EXCLUDED.fleet_id,
			status = EXCLUDED.status,
			hardware_type = EXCLUDED.hardware_type,
			vin = EXCLUDED.vin,
			last_heartbeat = EXCLUDED.last_heartbeat,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`, d.DeviceID, d.FleetID, d.Status, d.HardwareType, nullString(d.VIN), d.LastHeartbeat, jsonOrNil(d.Metadata), d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *PostgresStore) GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT device_id, fleet_id, status, hardware_type, vin, last_heartbeat, metadata, created_at, updated_at
		FROM devices WHERE device_id = $1
	`, deviceID)
	var d protocol.DeviceRecord
	var vin *string
	var metadata []byte
	if err := row.Scan(&d.DeviceID, &d.FleetID, &d.Status, &d.HardwareType, &vin, &d.LastHeartbeat, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return protocol.DeviceRecord{}, false, nil
		}
		return protocol.DeviceRecord{}, false, err
	}
	if vin != nil {
		d.VIN = *vin
	}
	d.Metadata = metadata
	return d, true, nil
}

func (p *PostgresStore) ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error) {
	var rows pgx.Rows
	var err error
	if fleetID == "" {
		rows, err = p.pool.Query(ctx, `SELECT device_id, fleet_id, status, hardware_type, vin, last_heartbeat, metadata, created_at, updated_at FROM devices`)
	} else {
		rows, err = p.pool.Query(ctx, `SELECT device_id, fleet_id, status, hardware_type, vin, last_heartbeat, metadata, created_at, updated_at FROM devices WHERE fleet_id = $1`, fleetID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.DeviceRecord
	for rows.Next() {
		var d protocol.DeviceRecord
		var vin *string
		var metadata []byte
		if err := rows.Scan(&d.DeviceID, &d.FleetID, &d.Status, &d.HardwareType, &vin, &d.LastHeartbeat, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if vin != nil {
			d.VIN = *vin
		}
		d.Metadata = metadata
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) PutEnvelope(ctx context.Context, e protocol.CommandEnvelope) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO commands (correlation_id, fleet_id, device_id, natural_language, parsed_intent, initiated_by, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (correlation_id) DO NOTHING
	`, e.CorrelationID, e.FleetID, e.DeviceID, e.NaturalLanguage, jsonOrNil(marshalIntent(e.ParsedIntent)), e.InitiatedBy, string(protocolStatusPending), e.CreatedAt)
	return err
}

func (p *PostgresStore) PutResponse(ctx context.Context, r protocol.CommandResponse) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE commands SET
			command_id = $2,
			status = $3,
			response_text = $4,
			response_data = $5,
			latency_ms = $6,
			error = $7,
			responded_at = $8
		WHERE correlation_id = $1
	`, r.CorrelationID, r.CommandID, string(r.Status), r.ResponseText, jsonOrNil(r.ResponseData), r.LatencyMs, r.Error, r.RespondedAt)
	return err
}

func (p *PostgresStore) GetCommand(ctx context.Context, correlationID uuid.UUID) (CommandRecord, bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT correlation_id, command_id, fleet_id, device_id, natural_language, parsed_intent, initiated_by,
		       status, response_text, response_data, latency_ms, error, created_at, responded_at
		FROM commands WHERE correlation_id = $1
	`, correlationID)
	return scanCommandRow(row)
}

func (p *PostgresStore) ListCommands(ctx context.Context, fleetID string) ([]CommandRecord, error) {
	var rows pgx.Rows
	var err error
	const cols = `correlation_id, command_id, fleet_id, device_id, natural_language, parsed_intent, initiated_by,
	       status, response_text, response_data, latency_ms, error, created_at, responded_at`
	if fleetID == "" {
		rows, err = p.pool.Query(ctx, `SELECT `+cols+` FROM commands`)
	} else {
		rows, err = p.pool.Query(ctx, `SELECT `+cols+` FROM commands WHERE fleet_id = $1`, fleetID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		rec, ok, err := scanCommandRow(rows)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func (p *PostgresStore) AppendTelemetry(ctx context.Context, r protocol.TelemetryReading) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO telemetry_readings (device_id, time, metric_name, value_numeric, value_text, value_json, unit, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.DeviceID, r.Time, r.MetricName, r.ValueNumeric, nullString(r.ValueText), jsonOrNil(r.ValueJSON), nullString(r.Unit), string(r.Source))
	return err
}

func (p *PostgresStore) ListTelemetry(ctx context.Context, deviceID string, limit int) ([]protocol.TelemetryReading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT device_id, time, metric_name, value_numeric, value_text, value_json, unit, source
		FROM telemetry_readings WHERE device_id = $1 ORDER BY time DESC LIMIT $2
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.TelemetryReading
	for rows.Next() {
		var r protocol.TelemetryReading
		var text, unit *string
		var j []byte
		if err := rows.Scan(&r.DeviceID, &r.Time, &r.MetricName, &r.ValueNumeric, &text, &j, &unit, &r.Source); err != nil {
			return nil, err
		}
		if text != nil {
			r.ValueText = *text
		}
		if unit != nil {
			r.Unit = *unit
		}
		r.ValueJSON = j
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) RecordHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO heartbeats (device_id, fleet_id, uptime_secs, ollama_status, can_status, agent_version, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, hb.DeviceID, hb.FleetID, hb.UptimeSecs, string(hb.OllamaStatus), string(hb.CANStatus), hb.AgentVersion, hb.Timestamp)
	return err
}

func (p *PostgresStore) GetShadow(ctx context.Context, deviceID, shadowName string) (protocol.ShadowState, bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT reported, desired, version, last_updated FROM device_shadows WHERE device_id = $1 AND shadow_name = $2
	`, deviceID, shadowName)
	var s protocol.ShadowState
	if err := row.Scan(&s.Reported, &s.Desired, &s.Version, &s.LastUpdated); err != nil {
		if err == pgx.ErrNoRows {
			return protocol.ShadowState{}, false, nil
		}
		return protocol.ShadowState{}, false, err
	}
	return s, true, nil
}

func (p *PostgresStore) ListShadowNames(ctx context.Context, deviceID string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT shadow_name FROM device_shadows WHERE device_id = $1`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpsertShadow(ctx context.Context, deviceID, shadowName string, s protocol.ShadowState) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO device_shadows (device_id, shadow_name, reported, desired, version, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (device_id, shadow_name) DO UPDATE SET
			reported = EXCLUDED.reported,
			desired = EXCLUDED.desired,
			version = EXCLUDED.version,
			last_updated = EXCLUDED.last_updated
	`, deviceID, shadowName, s.Reported, s.Desired, s.Version, s.LastUpdated)
	return err
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows, letting
// scanCommandRow back both GetCommand and ListCommands.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommandRow(row rowScanner) (CommandRecord, bool, error) {
	var e protocol.CommandEnvelope
	var r protocol.CommandResponse
	var intent []byte
	var respText, errText *string
	var respData []byte
	var latency *uint64
	var respondedAt *time.Time
	var status string

	if err := row.Scan(&e.CorrelationID, &r.CommandID, &e.FleetID, &e.DeviceID, &e.NaturalLanguage, &intent,
		&e.InitiatedBy, &status, &respText, &respData, &latency, &errText, &e.CreatedAt, &respondedAt); err != nil {
		if err == pgx.ErrNoRows {
			return CommandRecord{}, false, nil
		}
		return CommandRecord{}, false, err
	}

	e.ParsedIntent = unmarshalIntent(intent)
	rec := CommandRecord{Envelope: e}
	if status != string(protocolStatusPending) {
		r.CorrelationID = e.CorrelationID
		r.DeviceID = e.DeviceID
		r.Status = protocol.CommandStatus(status)
		if respText != nil {
			r.ResponseText = *respText
		}
		r.ResponseData = respData
		if latency != nil {
			r.LatencyMs = *latency
		}
		if errText != nil {
			r.Error = *errText
		}
		if respondedAt != nil {
			r.RespondedAt = *respondedAt
		}
		rec.Response = &r
	}
	return rec, true, nil
}

const protocolStatusPending = protocol.StatusPending

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jsonOrNil(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func marshalIntent(i *protocol.ParsedIntent) json.RawMessage {
	if i == nil {
		return nil
	}
	b, _ := json.Marshal(i)
	return b
}

func unmarshalIntent(b []byte) *protocol.ParsedIntent {
	if len(b) == 0 {
		return nil
	}
	var i protocol.ParsedIntent
	if err := json.Unmarshal(b, &i); err != nil {
		return nil
	}
	return &i
}
