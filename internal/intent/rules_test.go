package intent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

func TestRuleEngine_SearchLogs(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Parse(context.Background(), "search logs for connection refused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.Intent.Action != protocol.ActionTool || res.Intent.Name != "search_logs" {
		t.Fatalf("unexpected intent: %+v", res.Intent)
	}
	var args map[string]string
	if err := json.Unmarshal(res.Intent.Args, &args); err != nil {
		t.Fatalf("invalid args json: %v", err)
	}
	if args["query"] != "connection refused" {
		t.Errorf("unexpected query: %q", args["query"])
	}
}

func TestRuleEngine_ReadDTCs(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Parse(context.Background(), "read the DTCs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Intent.Name != "read_dtcs" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRuleEngine_ShellUptime(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Parse(context.Background(), "what is the system uptime?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Intent.Action != protocol.ActionShell || res.Intent.Name != "uptime" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRuleEngine_NoMatch(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Parse(context.Background(), "tell me a joke about penguins")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no match, got %+v", res)
	}
}

func TestRuleEngine_ReadPID_RequiresVerb(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Parse(context.Background(), "what's my rpm right now")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.Intent.Name != "read_pid" {
		t.Fatalf("expected a read_pid match, got %+v", res)
	}
}

func TestRuleEngine_NamedPIDNoun_WithoutVerb_NoMatch(t *testing.T) {
	e := NewRuleEngine()
	cases := []string{
		"my rpm is acting weird",
		"coolant temp warning light is on",
		"vehicle speed feels off today",
		"fuel level seems low lately",
		"engine load sounds rough",
	}
	for _, text := range cases {
		res, err := e.Parse(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", text, err)
		}
		if res != nil {
			t.Errorf("expected no match for %q without a verb, got %+v", text, res)
		}
	}
}

func TestRuleEngine_ConfidenceIsUniform(t *testing.T) {
	e := NewRuleEngine()
	res, _ := e.Parse(context.Background(), "hostname")
	if res.Intent.Confidence != ruleConfidence {
		t.Errorf("expected uniform confidence %v, got %v", ruleConfidence, res.Intent.Confidence)
	}
}
