package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// RuleEngine matches operator text against a fixed, ordered table of
// substring patterns. It is the cheapest of the engines, covering the
// bulk of day-to-day operator phrasing without ever touching a network
// call.
type RuleEngine struct {
	rules []rule
}

type rule struct {
	// triggers are substrings tested against the lowercased input;
	// the first rule with any matching trigger wins.
	triggers []string
	build    func(text string) *protocol.ParsedIntent
}

// ruleConfidence is the uniform confidence stamped on every rule-matched
// tool or shell intent. The rule engine is deterministic; its confidence
// reflects "this pattern matched", not a probabilistic estimate.
const ruleConfidence = 0.95

// NewRuleEngine builds the ordered pattern table. Three shell mappings
// present in the original pattern set (wifi signal via `iw dev`, network
// latency via `ping`, GPS location via `gpspipe`) are omitted here: none
// of their target binaries are members of the shell sandbox's allowlist,
// so keeping them would only ever produce a NotAllowed response.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{rules: buildRuleTable()}
}

func (e *RuleEngine) TierName() protocol.InferenceTier { return protocol.TierLocal }

// Parse returns the first rule whose trigger substring appears in text,
// or a nil result if nothing in the table matches.
func (e *RuleEngine) Parse(ctx context.Context, text string) (*Result, error) {
	lower := strings.ToLower(text)
	for _, r := range e.rules {
		if matchesAny(lower, r.triggers) {
			intent := r.build(text)
			if intent == nil {
				continue
			}
			return &Result{Intent: *intent, Tier: protocol.TierLocal}, nil
		}
	}
	return nil, nil
}

func matchesAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func toolIntent(name string, args map[string]any) *protocol.ParsedIntent {
	raw, _ := json.Marshal(args)
	return &protocol.ParsedIntent{
		Action:     protocol.ActionTool,
		Name:       name,
		Args:       raw,
		Confidence: ruleConfidence,
	}
}

func shellIntent(command string) *protocol.ParsedIntent {
	return &protocol.ParsedIntent{
		Action:     protocol.ActionShell,
		Name:       command,
		Confidence: ruleConfidence,
	}
}

func buildRuleTable() []rule {
	return []rule{
		// --- CAN / diagnostic tools ---
		{
			triggers: []string{"dtc", "trouble code", "fault code"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("read_dtcs", map[string]any{})
			},
		},
		{
			triggers: []string{"vin", "vehicle identification"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("read_vin", map[string]any{})
			},
		},
		{
			triggers: []string{"freeze frame", "freeze-frame"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("read_freeze", map[string]any{})
			},
		},
		{
			triggers: []string{"monitor the can bus", "watch the can bus", "can bus traffic"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("can_monitor", map[string]any{"duration_secs": extractDuration(text, 5)})
			},
		},
		{
			triggers: []string{"rpm", "engine speed"},
			build: func(text string) *protocol.ParsedIntent {
				if !hasPIDVerb(text) {
					return nil
				}
				pid := tryParsePID(text, "0C")
				return toolIntent("read_pid", map[string]any{"pid": pid})
			},
		},
		{
			triggers: []string{"coolant temp", "engine temperature"},
			build: func(text string) *protocol.ParsedIntent {
				if !hasPIDVerb(text) {
					return nil
				}
				pid := tryParsePID(text, "05")
				return toolIntent("read_pid", map[string]any{"pid": pid})
			},
		},
		{
			triggers: []string{"vehicle speed", "road speed"},
			build: func(text string) *protocol.ParsedIntent {
				if !hasPIDVerb(text) {
					return nil
				}
				pid := tryParsePID(text, "0D")
				return toolIntent("read_pid", map[string]any{"pid": pid})
			},
		},
		{
			triggers: []string{"fuel level"},
			build: func(text string) *protocol.ParsedIntent {
				if !hasPIDVerb(text) {
					return nil
				}
				pid := tryParsePID(text, "2F")
				return toolIntent("read_pid", map[string]any{"pid": pid})
			},
		},
		{
			triggers: []string{"engine load"},
			build: func(text string) *protocol.ParsedIntent {
				if !hasPIDVerb(text) {
					return nil
				}
				pid := tryParsePID(text, "04")
				return toolIntent("read_pid", map[string]any{"pid": pid})
			},
		},
		{
			triggers: []string{"read pid", "obd pid", "obd-ii pid"},
			build: func(text string) *protocol.ParsedIntent {
				hex, ok := extractHexValue(text)
				if !ok {
					return nil
				}
				return toolIntent("read_pid", map[string]any{"pid": hex})
			},
		},
		// --- Log tools ---
		{
			triggers: []string{"search logs", "search the logs", "grep logs", "find in logs"},
			build: func(text string) *protocol.ParsedIntent {
				args := map[string]any{"query": extractSearchQuery(text)}
				return toolIntent("search_logs", args)
			},
		},
		{
			triggers: []string{"analyze errors", "analyse errors", "error summary", "what errors"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("analyze_errors", map[string]any{})
			},
		},
		{
			triggers: []string{"log stats", "log statistics", "how many log lines"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("log_stats", map[string]any{})
			},
		},
		{
			triggers: []string{"tail the logs", "tail logs", "last lines of the log", "recent log lines"},
			build: func(text string) *protocol.ParsedIntent {
				return toolIntent("tail_logs", map[string]any{"lines": extractLineCount(text, 20)})
			},
		},
		{
			triggers: []string{"journal for", "journalctl", "systemd log", "journal of"},
			build: func(text string) *protocol.ParsedIntent {
				svc, ok := extractServiceName(text)
				if !ok {
					return nil
				}
				return toolIntent("query_journal", map[string]any{"unit": svc, "lines": extractLineCount(text, 20)})
			},
		},
		// --- Shell commands (allowlisted binaries only) ---
		{
			triggers: []string{"system uptime", "how long has it been up", "uptime"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("uptime") },
		},
		{
			triggers: []string{"disk usage", "disk space", "free disk"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("df -h") },
		},
		{
			triggers: []string{"memory usage", "free memory", "ram usage"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("free -h") },
		},
		{
			triggers: []string{"kernel version", "os version", "uname"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("uname -a") },
		},
		{
			triggers: []string{"running processes", "process list", "top processes"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("ps aux") },
		},
		{
			triggers: []string{"ip address", "network interfaces", "ifconfig"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("ip addr") },
		},
		{
			triggers: []string{"hostname", "what is this device called"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("hostname") },
		},
		{
			triggers: []string{"temperature sensors", "cpu temperature", "thermal"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("sensors") },
		},
		{
			triggers: []string{"cpu info", "cpu details", "lscpu"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("lscpu") },
		},
		{
			triggers: []string{"block devices", "list disks", "lsblk"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("lsblk") },
		},
		{
			triggers: []string{"current date", "what's today's date", "system clock"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("date") },
		},
		{
			triggers: []string{"kernel messages", "dmesg"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("dmesg") },
		},
		{
			triggers: []string{"socket stats", "open sockets", "listening ports"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("ss -tuln") },
		},
		{
			triggers: []string{"is the service running", "service status", "is running", "is it running"},
			build: func(text string) *protocol.ParsedIntent {
				svc, ok := extractServiceName(text)
				if !ok {
					return nil
				}
				return shellIntent("systemctl status " + svc)
			},
		},
		{
			triggers: []string{"throttling", "vcgencmd", "pi throttle status"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("vcgencmd get_throttled") },
		},
		{
			triggers: []string{"logged in user", "whoami", "current user"},
			build:    func(text string) *protocol.ParsedIntent { return shellIntent("whoami") },
		},
	}
}

// pidVerbs are the action words that must co-occur with a named PID noun
// (rpm, coolant temp, ...) before the rule engine will dispatch a
// read_pid call. Without this gate, a bare noun mention ("my rpm is
// acting weird") would misfire a read_pid call.
var pidVerbs = []string{"read", "get", "show", "what", "check"}

func hasPIDVerb(text string) bool {
	return matchesAny(strings.ToLower(text), pidVerbs)
}

// tryParsePID returns a named default PID (e.g. "0C" for RPM) unless the
// operator's text spells out an explicit two-hex-digit PID, in which case
// that value wins.
func tryParsePID(text, fallback string) string {
	if hex, ok := extractHexValue(text); ok {
		return hex
	}
	return fallback
}

var hexValuePattern = regexp.MustCompile(`(?i)\b0x([0-9a-f]{1,2})\b|\b([0-9a-f]{2})\b`)

func extractHexValue(text string) (string, bool) {
	m := hexValuePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return strings.ToUpper(m[1]), true
	}
	return strings.ToUpper(m[2]), true
}

var durationPattern = regexp.MustCompile(`(\d+)\s*(?:second|sec|s)\b`)

func extractDuration(text string, fallback float64) float64 {
	m := durationPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return fallback
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fallback
	}
	return v
}

var lineCountPattern = regexp.MustCompile(`(?:last|past)\s+(\d+)\s+lines?`)

func extractLineCount(text string, fallback int) int {
	m := lineCountPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return fallback
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback
	}
	return v
}

var searchQuotedPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// extractSearchQuery prefers a quoted phrase; otherwise takes whatever
// follows "for"/"containing" as the query, falling back to the trimmed
// text itself.
func extractSearchQuery(text string) string {
	if m := searchQuotedPattern.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	lower := strings.ToLower(text)
	for _, kw := range []string{"containing ", "for ", "about "} {
		if i := strings.Index(lower, kw); i >= 0 {
			return strings.TrimSpace(text[i+len(kw):])
		}
	}
	return strings.TrimSpace(text)
}

// commonServiceNames lets extractServiceName recognize a handful of
// services by name even when the phrasing doesn't isolate them cleanly
// (e.g. "is nginx running").
var commonServiceNames = []string{
	"sshd", "nginx", "docker", "fleet-agent", "networking", "cron",
}

func extractServiceName(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, name := range commonServiceNames {
		if strings.Contains(lower, name) {
			return name, true
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	return fields[len(fields)-1], true
}
