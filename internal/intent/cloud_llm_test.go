package intent

import (
	"context"
	"testing"
)

func TestExtractJSON_JSONFence(t *testing.T) {
	in := "here you go:\n```json\n{\"tool_name\":\"read_vin\"}\n```\nlet me know"
	got := extractJSON(in)
	if got != `{"tool_name":"read_vin"}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_BareFence(t *testing.T) {
	in := "```\n{\"tool_name\":\"read_vin\"}\n```"
	got := extractJSON(in)
	if got != `{"tool_name":"read_vin"}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_NoFence(t *testing.T) {
	in := `  {"tool_name":"read_vin"}  `
	got := extractJSON(in)
	if got != `{"tool_name":"read_vin"}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestCloudLLMEngine_NoEndpointIsError(t *testing.T) {
	e := NewCloudLLMEngine(CloudLLMConfig{})
	_, err := e.Parse(context.Background(), "read the dtcs")
	if err == nil {
		t.Fatal("expected an error for a missing endpoint")
	}
}
