package protocol

import (
	"encoding/json"
	"time"
)

// TelemetrySource identifies which subsystem produced a TelemetryReading.
// The value also fixes the broker topic suffix under telemetry/{source}
// (see pkg/topic), a detail the original distillation left to the wire
// format rather than the data model.
type TelemetrySource string

const (
	SourceObd2    TelemetrySource = "obd2"
	SourceSystem  TelemetrySource = "system"
	SourceCanbus  TelemetrySource = "canbus"
)

// TelemetryReading is one sample reported by a device. Exactly one of
// ValueNumeric, ValueText, ValueJSON should be set, matching how the
// producing tool represents its result.
type TelemetryReading struct {
	DeviceID     string          `json:"device_id"`
	Time         time.Time       `json:"time"`
	MetricName   string          `json:"metric_name"`
	ValueNumeric *float64        `json:"value_numeric,omitempty"`
	ValueText    string          `json:"value_text,omitempty"`
	ValueJSON    json.RawMessage `json:"value_json,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Source       TelemetrySource `json:"source"`
}
