package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zeroclaw/fleetctl/internal/tools"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// logToolNames is the subset of KnownTools that take a "path" argument,
// which DefaultLogPath gets injected into when an on-device model omits
// it. query_journal is excluded: it takes "unit", not "path".
var logToolNames = map[string]bool{
	"search_logs":    true,
	"analyze_errors": true,
	"log_stats":      true,
	"tail_logs":      true,
}

// shellMetacharPrefixes are scanned left-to-right alongside the two-byte
// "$(" substitution marker; sanitizeShellCommand truncates at the
// earliest match of either.
var shellMetacharPrefixes = []string{"|", ";", "`", ">", "<", "&", "\n", "\r"}

// localSystemPrompt teaches the on-device model all ten tools plus shell
// and reply actions, matching the three-action-kind contract the
// executor expects.
const localSystemPrompt = `You are an on-device fleet diagnostic assistant with no network access. Given an operator's request, decide on exactly one action: invoke a tool, run a read-only shell command, or reply conversationally.

Tools: read_pid, read_dtcs, read_vin, read_freeze, can_monitor, search_logs, analyze_errors, log_stats, tail_logs, query_journal.

Shell commands are restricted to read-only diagnostic binaries (uptime, df, free, uname, ps, ip, hostname, sensors, lscpu, lsblk, date, dmesg, journalctl, systemctl, vcgencmd, top, whoami, ss, du, head, tail, wc, cat) with no pipes, redirects, or substitution.

Reply with exactly one JSON object and nothing else:
{"action": "tool"|"shell"|"reply", "tool_name": "...", "tool_args": {...}, "command": "...", "message": "...", "confidence": 0.0-1.0}`

// LocalLLMConfig configures LocalLLMEngine against an Ollama-compatible
// /api/chat endpoint.
type LocalLLMConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
	Enabled bool
}

// LocalLLMEngine is the on-device fallback engine: the only one of the
// three capable of proposing all three action kinds. The executor uses it
// for any command whose envelope arrives without a parsed intent.
type LocalLLMEngine struct {
	httpClient *http.Client
	host       string
	model      string
	enabled    bool
}

// NewLocalLLMEngine builds a LocalLLMEngine from cfg. Timeout defaults
// to 15s (pkg/options.InferenceOptions' established default), not the
// 5s default of the reference Ollama client.
func NewLocalLLMEngine(cfg LocalLLMConfig) *LocalLLMEngine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &LocalLLMEngine{
		httpClient: &http.Client{Timeout: timeout},
		host:       cfg.Host,
		model:      cfg.Model,
		enabled:    cfg.Enabled,
	}
}

func (e *LocalLLMEngine) TierName() protocol.InferenceTier { return protocol.TierLocal }

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Format   string              `json:"format"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message *ollamaResponseMessage `json:"message"`
}

type ollamaResponseMessage struct {
	Content string `json:"content"`
}

type rawIntent struct {
	Action     string          `json:"action"`
	ToolName   *string         `json:"tool_name"`
	ToolArgs   json.RawMessage `json:"tool_args"`
	Command    *string         `json:"command"`
	Message    *string         `json:"message"`
	Confidence float64         `json:"confidence"`
}

// Parse posts text to the local Ollama-compatible endpoint in JSON mode
// and validates whichever of the three action kinds the model proposed.
// Disabled configuration, network errors, malformed bodies, and
// validation failures all yield a nil result and a nil error; only a
// failure to encode or build the request is returned as an error.
func (e *LocalLLMEngine) Parse(ctx context.Context, text string) (*Result, error) {
	if !e.enabled {
		return nil, nil
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model: e.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: localSystemPrompt},
			{Role: "user", Content: text},
		},
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("local llm engine: marshal request: %w", err)
	}

	url := strings.TrimSuffix(e.host, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("local llm engine: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Warn("local llm engine: request failed", "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("local llm engine: non-200 response", "status", resp.StatusCode)
		return nil, nil
	}

	var cr ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		log.Warn("local llm engine: invalid response body", "error", err)
		return nil, nil
	}
	if cr.Message == nil || cr.Message.Content == "" {
		return nil, nil
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(cr.Message.Content), &raw); err != nil {
		log.Warn("local llm engine: invalid intent JSON", "error", err)
		return nil, nil
	}
	if raw.Action == "" {
		raw.Action = "tool"
	}

	switch raw.Action {
	case "tool":
		return validateToolIntent(raw)
	case "shell":
		return validateShellIntent(raw)
	case "reply":
		return validateReplyIntent(raw)
	default:
		// Small local models sometimes emit the tool name itself as
		// the action (a known quirk), or set an unrecognized action
		// while still setting tool_name. Recover both before giving up.
		if IsKnownTool(raw.Action) {
			name := raw.Action
			raw.ToolName = &name
			return validateToolIntent(raw)
		}
		if raw.ToolName != nil {
			return validateToolIntent(raw)
		}
		log.Warn("local llm engine: unrecognized action", "action", raw.Action)
		return nil, nil
	}
}

func validateToolIntent(raw rawIntent) (*Result, error) {
	if raw.ToolName == nil || *raw.ToolName == "" {
		return nil, nil
	}
	if !IsKnownTool(*raw.ToolName) {
		log.Warn("local llm engine: unknown tool name", "tool", *raw.ToolName)
		return nil, nil
	}
	if raw.Confidence < minConfidence {
		log.Debug("local llm engine: confidence below floor", "confidence", raw.Confidence)
		return nil, nil
	}

	args := ensureLogToolPath(*raw.ToolName, raw.ToolArgs)

	return &Result{
		Intent: protocol.ParsedIntent{
			Action:     protocol.ActionTool,
			Name:       *raw.ToolName,
			Args:       args,
			Confidence: raw.Confidence,
		},
		Tier: protocol.TierLocal,
	}, nil
}

func validateShellIntent(raw rawIntent) (*Result, error) {
	if raw.Command == nil || strings.TrimSpace(*raw.Command) == "" {
		return nil, nil
	}
	sanitized := sanitizeShellCommand(*raw.Command)
	if sanitized == "" {
		return nil, nil
	}
	if raw.Confidence < minConfidence {
		log.Debug("local llm engine: confidence below floor", "confidence", raw.Confidence)
		return nil, nil
	}
	if sanitized != strings.TrimSpace(*raw.Command) {
		log.Info("local llm engine: sanitized shell command", "original", *raw.Command, "sanitized", sanitized)
	}

	return &Result{
		Intent: protocol.ParsedIntent{
			Action:     protocol.ActionShell,
			Name:       sanitized,
			Args:       raw.ToolArgs,
			Confidence: raw.Confidence,
		},
		Tier: protocol.TierLocal,
	}, nil
}

func validateReplyIntent(raw rawIntent) (*Result, error) {
	if raw.Message == nil || strings.TrimSpace(*raw.Message) == "" {
		return nil, nil
	}
	args, _ := json.Marshal(map[string]any{"message": strings.TrimSpace(*raw.Message)})

	return &Result{
		Intent: protocol.ParsedIntent{
			Action:     protocol.ActionReply,
			Args:       args,
			Confidence: raw.Confidence,
		},
		Tier: protocol.TierLocal,
	}, nil
}

// sanitizeShellCommand truncates cmd at the earliest metacharacter or
// "$(" substitution marker, trimming the result. An empty result means
// the command was nothing but metacharacters (or began with one) and
// should be discarded.
func sanitizeShellCommand(cmd string) string {
	cut := len(cmd)
	if i := strings.Index(cmd, "$("); i >= 0 && i < cut {
		cut = i
	}
	for _, mc := range shellMetacharPrefixes {
		if i := strings.Index(cmd, mc); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(cmd[:cut])
}

// ensureLogToolPath injects DefaultLogPath into a log tool's arguments
// when "path" is missing, and replaces non-object arguments outright.
func ensureLogToolPath(toolName string, args json.RawMessage) json.RawMessage {
	if !logToolNames[toolName] {
		if len(args) == 0 {
			return json.RawMessage("{}")
		}
		return args
	}

	var obj map[string]any
	if len(args) == 0 || json.Unmarshal(args, &obj) != nil || obj == nil {
		out, _ := json.Marshal(map[string]any{"path": tools.DefaultLogPath})
		return out
	}
	if _, ok := obj["path"]; !ok {
		obj["path"] = tools.DefaultLogPath
		out, _ := json.Marshal(obj)
		return out
	}
	return args
}
