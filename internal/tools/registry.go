// Package tools implements the closed, compile-time-known tool registry:
// five CAN-backed diagnostic tools and five log-backed ones, each a
// capability bundle of name, description, argument schema and an execute
// operation. The registry is a tagged index over two small slices, never
// an open-ended plugin system.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Kind tags which backend a tool is bound to.
type Kind int

const (
	KindCan Kind = iota
	KindLog
)

// Result is the structured outcome of a tool invocation, returned
// regardless of Kind. Success carries Data and/or Summary; failure
// carries Error and leaves Data/Summary empty.
type Result struct {
	ToolName string          `json:"tool_name"`
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Summary  string          `json:"summary,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Tool is a capability bundle: a name, a human description, an argument
// schema (kept as a free-form JSON value rather than a typed struct,
// since only its presence matters to the intent engines' prompts), and
// an execute operation bound to whichever backend the registry was built
// with.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Kind        Kind
	Execute     func(ctx context.Context, args json.RawMessage) Result
}

// Registry is the O(1) name -> tool lookup the executor consults. It
// never changes after construction; callers never register tools at
// runtime.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry builds a Registry backed by can and log, the two
// capability interfaces standing in for real hardware/log I/O.
func NewRegistry(can CanBackend, log LogBackend) *Registry {
	tools := append(canTools(can), logTools(log)...)
	index := make(map[string]int, len(tools))
	for i, t := range tools {
		index[t.Name] = i
	}
	return &Registry{tools: tools, index: index}
}

// Lookup returns the tool registered under name, or ok=false if no such
// tool exists.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Execute looks up name and runs it against args, returning
// "unknown tool: {name}" as an error if name isn't registered — the
// exact convention the executor's ActionTool branch surfaces verbatim.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, args), nil
}

// List returns every registered tool's name and description, in
// registration order (CAN tools first, then log tools), for use in LLM
// system prompts.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
