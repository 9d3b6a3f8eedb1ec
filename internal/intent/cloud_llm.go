package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// minConfidence is the floor below which a cloud-LLM-proposed intent is
// discarded rather than acted on.
const minConfidence = 0.3

// cloudSystemPrompt teaches the model the closed tool set and the exact
// JSON shape it must reply with. Every KnownTools entry is enumerated so
// the cloud and on-device engines stay consistent with each other, even
// though the system prompt this was ported from only enumerated nine of
// the ten (query_journal was missing there — an inconsistency in the
// source material this port does not repeat).
const cloudSystemPrompt = `You are a fleet vehicle diagnostic assistant. Given an operator's request, decide which single tool to invoke.

Available tools:
- read_pid(pid: string): read a single OBD-II parameter by hex id
- read_dtcs(): read stored diagnostic trouble codes
- read_vin(): read the vehicle identification number
- read_freeze(): read the freeze-frame snapshot
- can_monitor(duration_secs: number): monitor CAN bus traffic
- search_logs(path: string, query: string): search a log file
- analyze_errors(path: string): bucket error/warning lines by category
- log_stats(path: string): report coarse line counts
- tail_logs(path: string, lines: integer): return the last N lines
- query_journal(unit: string, lines: integer): return the last N journal lines for a systemd unit

Reply with exactly one JSON object and nothing else:
{"tool_name": "<one of the names above, or null if none apply>", "tool_args": {...}, "confidence": 0.0-1.0}`

// CloudLLMEngine calls a generic JSON-mode chat completion endpoint over
// HTTP. It only ever proposes Tool intents — the cloud side never
// authors shell commands or canned replies on a device's behalf.
type CloudLLMEngine struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
}

// CloudLLMConfig configures CloudLLMEngine. Timeout defaults to 15s
// (spec.md's binding default), not the 5s default seen in the reference
// material, since the cloud endpoint this targets tolerates slower cold
// starts than an on-box Ollama instance does.
type CloudLLMConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewCloudLLMEngine builds a CloudLLMEngine from cfg, applying the
// 15-second default timeout when cfg.Timeout is zero.
func NewCloudLLMEngine(cfg CloudLLMConfig) *CloudLLMEngine {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &CloudLLMEngine{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
	}
}

func (e *CloudLLMEngine) TierName() protocol.InferenceTier { return protocol.TierCloudHaiku }

type chatRequest struct {
	Model    string        `json:"model"`
	System   string        `json:"system"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Content string `json:"content"`
}

type llmToolCall struct {
	ToolName   *string         `json:"tool_name"`
	ToolArgs   json.RawMessage `json:"tool_args"`
	Confidence float64         `json:"confidence"`
}

// Parse calls the configured endpoint with a 15s (or configured) timeout.
// Any transport failure, timeout, malformed body, unknown tool name, or
// sub-floor confidence yields a nil result rather than an error — only a
// genuinely unreachable configuration (empty endpoint) is an error.
func (e *CloudLLMEngine) Parse(ctx context.Context, text string) (*Result, error) {
	if e.endpoint == "" {
		return nil, fmt.Errorf("cloud llm engine: no endpoint configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:  e.model,
		System: cloudSystemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cloud llm engine: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cloud llm engine: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Warn("cloud llm engine: request failed", "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("cloud llm engine: non-200 response", "status", resp.StatusCode)
		return nil, nil
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		log.Warn("cloud llm engine: invalid response body", "error", err)
		return nil, nil
	}

	raw := extractJSON(cr.Content)

	var call llmToolCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		log.Warn("cloud llm engine: invalid tool-call JSON", "error", err)
		return nil, nil
	}

	if call.ToolName == nil || *call.ToolName == "" {
		return nil, nil
	}
	if !IsKnownTool(*call.ToolName) {
		log.Warn("cloud llm engine: unknown tool name", "tool", *call.ToolName)
		return nil, nil
	}
	if call.Confidence < minConfidence {
		log.Debug("cloud llm engine: confidence below floor", "confidence", call.Confidence)
		return nil, nil
	}

	args := call.ToolArgs
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	return &Result{
		Intent: protocol.ParsedIntent{
			Action:     protocol.ActionTool,
			Name:       *call.ToolName,
			Args:       args,
			Confidence: call.Confidence,
		},
		Tier: protocol.TierCloudHaiku,
	}, nil
}

// extractJSON strips a ```json fence, then a bare ``` fence, returning
// the trimmed raw text unchanged if neither is present.
func extractJSON(text string) string {
	if stripped, ok := stripFence(text, "```json"); ok {
		return stripped
	}
	if stripped, ok := stripFence(text, "```"); ok {
		return stripped
	}
	return strings.TrimSpace(text)
}

func stripFence(text, open string) (string, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
