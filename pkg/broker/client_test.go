package broker

import "testing"

func TestTopicsMatch(t *testing.T) {
	cases := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"fleet/f/d/command/request", "fleet/f/d/command/request", true},
		{"fleet/f/+/command/request", "fleet/f/d/command/request", true},
		{"fleet/f/+/command/request", "fleet/f/d/shadow/update", false},
		{"fleet/f/d/#", "fleet/f/d/command/request", true},
		{"fleet/f/d/#", "fleet/f/other/command/request", false},
		{"fleet/f/+/heartbeat/ping", "fleet/f/d1/heartbeat/ping", true},
	}
	for _, c := range cases {
		if got := topicsMatch(c.filter, c.topic); got != c.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", c.filter, c.topic, got, c.want)
		}
	}
}

func TestTopicFilterSharedSubscription(t *testing.T) {
	if got, want := topicFilter("$share/group/fleet/f/d/command/request"), "fleet/f/d/command/request"; got != want {
		t.Errorf("topicFilter() = %q, want %q", got, want)
	}
	if got, want := topicFilter("fleet/f/d/command/request"), "fleet/f/d/command/request"; got != want {
		t.Errorf("topicFilter() = %q, want %q", got, want)
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := &ClientConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty broker url")
	}

	cfg.BrokerURL = "mqtts://broker.internal:8883"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientRejectsNilConfig(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSetDefaultConfig(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "mqtts://broker.internal:8883"}
	setDefaultConfig(cfg)
	if cfg.KeepAlive != 60 {
		t.Errorf("KeepAlive = %d, want 60", cfg.KeepAlive)
	}
	if cfg.ConnectTimeout == 0 {
		t.Error("ConnectTimeout should have a default")
	}
}
