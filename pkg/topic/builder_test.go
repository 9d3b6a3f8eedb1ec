package topic

import "testing"

func TestBuilderDeviceTopics(t *testing.T) {
	b := NewBuilder("fleet-alpha")

	cases := map[string]string{
		b.CommandRequest("rpi-001"):  "fleet/fleet-alpha/rpi-001/command/request",
		b.CommandResponse("rpi-001"): "fleet/fleet-alpha/rpi-001/command/response",
		b.CommandAck("rpi-001"):      "fleet/fleet-alpha/rpi-001/command/ack",
		b.HeartbeatPing("rpi-001"):   "fleet/fleet-alpha/rpi-001/heartbeat/ping",
		b.Telemetry("rpi-001", "obd2"): "fleet/fleet-alpha/rpi-001/telemetry/obd2",
		b.ShadowUpdate("rpi-001"):    "fleet/fleet-alpha/rpi-001/shadow/update",
		b.ShadowDelta("rpi-001"):     "fleet/fleet-alpha/rpi-001/shadow/delta",
		b.AlertNotify("rpi-001"):     "fleet/fleet-alpha/rpi-001/alert/notify",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestBuilderBroadcastAndWildcards(t *testing.T) {
	b := NewBuilder("fleet-alpha")

	if got, want := b.BroadcastCommandRequest(), "fleet/fleet-alpha/broadcast/command/request"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := b.BroadcastConfigUpdate(), "fleet/fleet-alpha/broadcast/config/update"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := b.DeviceSubscribeAll("rpi-001"), "fleet/fleet-alpha/rpi-001/#"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := b.FleetCommandResponses(), "fleet/fleet-alpha/+/command/response"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := b.FleetHeartbeats(), "fleet/fleet-alpha/+/heartbeat/ping"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseDeviceTopic(t *testing.T) {
	p, ok := Parse("fleet/fleet-alpha/rpi-001/command/request")
	if !ok {
		t.Fatalf("expected parse success")
	}
	if p.FleetID != "fleet-alpha" || p.DeviceID != "rpi-001" || p.Category != "command" || p.Action != "request" {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestParseBroadcastTopic(t *testing.T) {
	p, ok := Parse("fleet/fleet-alpha/broadcast/command/request")
	if !ok {
		t.Fatalf("expected parse success")
	}
	if p.FleetID != "fleet-alpha" || p.DeviceID != "" || p.Category != "command" || p.Action != "request" {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestParseInvalidTopics(t *testing.T) {
	for _, topic := range []string{"invalid/topic", "fleet/abc", ""} {
		if _, ok := Parse(topic); ok {
			t.Errorf("expected parse failure for %q", topic)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		topic string
		want  Category
	}{
		{"fleet/f/d/command/request", CategoryCommand},
		{"fleet/f/d/command/response", CategoryCommand},
		{"fleet/f/d/shadow/delta", CategoryShadowDelta},
		{"fleet/f/broadcast/config/update", CategoryConfigUpdate},
		{"fleet/f/d/heartbeat/ping", CategoryUnknown},
	}
	for _, c := range cases {
		p, ok := Parse(c.topic)
		if !ok {
			t.Fatalf("parse failed for %q", c.topic)
		}
		if got := Classify(p); got != c.want {
			t.Errorf("Classify(%q) = %q, want %q", c.topic, got, c.want)
		}
	}
}
