package tools

import (
	"context"
	"strings"
	"time"
)

// CanBackend is the driven port the five CAN tools execute against. Real
// byte-level OBD-II/CAN frame decoding is out of scope; an implementation
// only has to honor this small, typed surface. MockCanBackend below is
// the only implementation this repo ships.
type CanBackend interface {
	// ReadPID returns the decoded value and unit for a single OBD-II
	// parameter id (e.g. "0C" for engine RPM).
	ReadPID(ctx context.Context, pid string) (value float64, unit string, err error)
	// ReadDTCs returns the stored diagnostic trouble codes.
	ReadDTCs(ctx context.Context) ([]string, error)
	// ReadVIN returns the vehicle identification number.
	ReadVIN(ctx context.Context) (string, error)
	// ReadFreezeFrame returns the snapshot of PIDs captured when the
	// first DTC was set.
	ReadFreezeFrame(ctx context.Context) (map[string]any, error)
	// Monitor listens on the bus for d and returns observed frame
	// identifiers and counts.
	Monitor(ctx context.Context, d time.Duration) (frames map[string]int, err error)
}

// LogBackend is the driven port the five log tools execute against.
type LogBackend interface {
	// Search returns lines under path matching query.
	Search(ctx context.Context, path, query string) (entries []LogLine, err error)
	// AnalyzeErrors scans path and buckets error-severity lines by a
	// coarse category.
	AnalyzeErrors(ctx context.Context, path string) (byCategory map[string]int, err error)
	// Stats returns coarse counters (total lines, by severity) for path.
	Stats(ctx context.Context, path string) (map[string]int, error)
	// Tail returns the last n lines of path.
	Tail(ctx context.Context, path string, n int) ([]string, error)
	// QueryJournal returns the last n lines of the systemd journal for
	// unit.
	QueryJournal(ctx context.Context, unit string, n int) ([]string, error)
}

// LogLine is a single matched line from Search, kept minimal since real
// parsing is out of scope.
type LogLine struct {
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
}

// DefaultLogPath is injected by the local inference engine when a log
// tool's arguments omit "path", mirroring the on-device LLM engine's
// default-path fallback.
const DefaultLogPath = "/var/log/syslog"

// namedPIDs maps the handful of PIDs the rule engine and this mock
// backend both recognize by name, keeping response values plausible
// without pretending to decode real CAN frames.
var namedPIDs = map[string]struct {
	value float64
	unit  string
}{
	"0C": {value: 2150, unit: "rpm"},
	"0D": {value: 72, unit: "km/h"},
	"05": {value: 89, unit: "°C"},
	"2F": {value: 64, unit: "%"},
	"04": {value: 38, unit: "%"},
}

// MockCanBackend returns deterministic, plausible readings without
// touching real hardware. Byte-level CAN/OBD-II decoding is explicitly
// out of scope; this backend exists so the registry's execute paths are
// exercisable end to end.
type MockCanBackend struct {
	VIN string
}

// NewMockCanBackend returns a backend seeded with a fixed VIN.
func NewMockCanBackend() *MockCanBackend {
	return &MockCanBackend{VIN: "1HGCM82633A004352"}
}

func (m *MockCanBackend) ReadPID(ctx context.Context, pid string) (float64, string, error) {
	if r, ok := namedPIDs[pid]; ok {
		return r.value, r.unit, nil
	}
	return 0, "", nil
}

func (m *MockCanBackend) ReadDTCs(ctx context.Context) ([]string, error) {
	return []string{"P0301", "P0420"}, nil
}

func (m *MockCanBackend) ReadVIN(ctx context.Context) (string, error) {
	return m.VIN, nil
}

func (m *MockCanBackend) ReadFreezeFrame(ctx context.Context) (map[string]any, error) {
	return map[string]any{
		"rpm":          2150,
		"speed_kmh":    72,
		"coolant_temp": 89,
		"dtc":          "P0301",
	}, nil
}

func (m *MockCanBackend) Monitor(ctx context.Context, d time.Duration) (map[string]int, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d):
	}
	return map[string]int{"0x7E8": 42, "0x7E9": 3}, nil
}

// MockLogBackend returns a small, fixed set of plausible log lines
// rather than reading real files. Real log parsing and storage I/O is
// explicitly out of scope.
type MockLogBackend struct{}

// NewMockLogBackend returns a backend with canned sample content.
func NewMockLogBackend() *MockLogBackend { return &MockLogBackend{} }

var sampleLines = []string{
	"Jan 01 00:00:01 edge systemd[1]: Started fleet-agent.",
	"Jan 01 00:00:05 edge fleet-agent[123]: connected to broker",
	"Jan 01 00:04:12 edge fleet-agent[123]: error: connection refused",
	"Jan 01 00:04:13 edge fleet-agent[123]: warning: retrying in 5s",
	"Jan 01 00:04:18 edge fleet-agent[123]: connected to broker",
}

func (m *MockLogBackend) Search(ctx context.Context, path, query string) ([]LogLine, error) {
	var out []LogLine
	for i, l := range sampleLines {
		if query == "" || strings.Contains(l, query) {
			out = append(out, LogLine{LineNumber: i + 1, Text: l})
		}
	}
	return out, nil
}

func (m *MockLogBackend) AnalyzeErrors(ctx context.Context, path string) (map[string]int, error) {
	counts := map[string]int{}
	for _, l := range sampleLines {
		switch {
		case strings.Contains(l, "error"):
			counts["error"]++
		case strings.Contains(l, "warning"):
			counts["warning"]++
		}
	}
	return counts, nil
}

func (m *MockLogBackend) Stats(ctx context.Context, path string) (map[string]int, error) {
	return map[string]int{"total_lines": len(sampleLines)}, nil
}

func (m *MockLogBackend) Tail(ctx context.Context, path string, n int) ([]string, error) {
	if n <= 0 || n > len(sampleLines) {
		n = len(sampleLines)
	}
	return sampleLines[len(sampleLines)-n:], nil
}

func (m *MockLogBackend) QueryJournal(ctx context.Context, unit string, n int) ([]string, error) {
	return m.Tail(ctx, "", n)
}
