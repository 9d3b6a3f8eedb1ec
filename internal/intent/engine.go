// Package intent turns an operator's natural-language command into a
// ParsedIntent: which tool to invoke, which shell command to run, or a
// plain conversational reply.
package intent

import (
	"context"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// Result pairs a parsed intent with the tier of the engine that produced
// it, used for cost accounting and observability.
type Result struct {
	Intent protocol.ParsedIntent
	Tier   protocol.InferenceTier
}

// Engine parses natural language into a structured intent. Parse returns a
// nil result (not an error) when the engine has no match, declines, or
// cannot reach its backend — only configuration and request-building
// failures are returned as errors.
type Engine interface {
	// Parse attempts to turn text into a ParsedIntent. A nil *Result with
	// a nil error means "no match."
	Parse(ctx context.Context, text string) (*Result, error)

	// TierName identifies the engine for CommandResponse.InferenceTier.
	TierName() protocol.InferenceTier
}

// KnownTools lists every tool name the closed registry serves. Both the
// rule engine and the LLM engines validate their output against this set.
var KnownTools = []string{
	"read_pid",
	"read_dtcs",
	"read_vin",
	"read_freeze",
	"can_monitor",
	"search_logs",
	"analyze_errors",
	"log_stats",
	"tail_logs",
	"query_journal",
}

// IsKnownTool reports whether name is one of the closed registry's tools.
func IsKnownTool(name string) bool {
	for _, t := range KnownTools {
		if t == name {
			return true
		}
	}
	return false
}
