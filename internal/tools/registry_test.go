package tools

import (
	"context"
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewMockCanBackend(), NewMockLogBackend())
}

func TestRegistry_HasExactlyTenTools(t *testing.T) {
	r := newTestRegistry()
	if r.Len() != 10 {
		t.Fatalf("expected 10 tools, got %d", r.Len())
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Execute(context.Background(), "nonexistent_tool", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "unknown tool: nonexistent_tool" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRegistry_ReadVIN(t *testing.T) {
	r := newTestRegistry()
	res, err := r.Execute(context.Background(), "read_vin", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Summary == "" {
		t.Errorf("expected a successful result with a summary, got %+v", res)
	}
}

func TestRegistry_SearchLogs(t *testing.T) {
	r := newTestRegistry()
	res, err := r.Execute(context.Background(), "search_logs", []byte(`{"query":"connection refused"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success, got %+v", res)
	}
}

func TestRegistry_QueryJournalRequiresUnit(t *testing.T) {
	r := newTestRegistry()
	res, err := r.Execute(context.Background(), "query_journal", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if res.Success {
		t.Errorf("expected failure when unit is missing")
	}
}
