package shadow

import (
	"encoding/json"
	"testing"
)

func TestMergeReported_ShallowPatch(t *testing.T) {
	existing := json.RawMessage(`{"firmware":"1.2","uptime":100}`)
	incoming := json.RawMessage(`{"firmware":"1.3"}`)

	merged, err := MergeReported(existing, incoming)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var m map[string]any
	_ = json.Unmarshal(merged, &m)
	if m["firmware"] != "1.3" {
		t.Errorf("expected firmware to be overwritten, got %v", m["firmware"])
	}
	if m["uptime"] != float64(100) {
		t.Errorf("expected uptime to survive the merge, got %v", m["uptime"])
	}
}

func TestComputeDelta_Convergence(t *testing.T) {
	desired := json.RawMessage(`{"firmware":"1.3"}`)
	reported := json.RawMessage(`{"firmware":"1.2"}`)

	delta, ok, err := ComputeDelta(desired, reported)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a non-empty delta")
	}
	var m map[string]any
	_ = json.Unmarshal(delta, &m)
	if m["firmware"] != "1.3" {
		t.Errorf("unexpected delta: %v", m)
	}

	// Applying the delta to reported should converge: a second
	// computation against the merged state yields an empty delta.
	merged, err := MergeReported(reported, delta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok2, err := ComputeDelta(desired, merged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok2 {
		t.Error("expected convergence: delta should be empty after applying it once")
	}
}

func TestComputeDelta_MissingKeysInDesiredNeverAppear(t *testing.T) {
	desired := json.RawMessage(`{"firmware":"1.3"}`)
	reported := json.RawMessage(`{"firmware":"1.3","extra_field":"value"}`)

	delta, ok, err := ComputeDelta(desired, reported)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected empty delta, got %s", delta)
	}
}

func TestComputeDelta_EmptyWhenFullyConverged(t *testing.T) {
	desired := json.RawMessage(`{"firmware":"1.3","config":{"a":1}}`)
	reported := json.RawMessage(`{"firmware":"1.3","config":{"a":1}}`)

	_, ok, err := ComputeDelta(desired, reported)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected empty delta for fully converged state")
	}
}
