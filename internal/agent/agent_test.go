package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/zeroclaw/fleetctl/internal/executor"
	"github.com/zeroclaw/fleetctl/internal/tools"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

type fakeChannel struct {
	mu         sync.Mutex
	published  []publishedMessage
	handlers   map[string]broker.MessageHandler
}

type publishedMessage struct {
	topic   string
	qos     int
	payload []byte
}

var _ broker.Channel = (*fakeChannel)(nil)

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]broker.MessageHandler)}
}

func (f *fakeChannel) Start(ctx context.Context) error           { return nil }
func (f *fakeChannel) Disconnect(ctx context.Context)            {}
func (f *fakeChannel) AwaitConnection(ctx context.Context) error { return nil }
func (f *fakeChannel) IsConnected() bool                         { return true }
func (f *fakeChannel) Unsubscribe(ctx context.Context, topic string) error {
	delete(f.handlers, topic)
	return nil
}

func (f *fakeChannel) Subscribe(ctx context.Context, topic string, qos int, handler broker.MessageHandler) error {
	f.handlers[topic] = handler
	return nil
}

func (f *fakeChannel) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{topic: topic, qos: qos, payload: payload})
	return nil
}

func (f *fakeChannel) deliver(ctx context.Context, topic string, payload []byte) {
	if h, ok := f.handlers[topic]; ok {
		h(ctx, topic, payload)
	}
}

func newTestAgent() (*Agent, *fakeChannel) {
	ch := newFakeChannel()
	registry := tools.NewRegistry(tools.NewMockCanBackend(), tools.NewMockLogBackend())
	exec := executor.New(registry, nil)
	cfg := Config{
		FleetID:            "fleet-1",
		DeviceID:            "device-1",
		HardwareType:        protocol.HardwareRaspberryPi4,
		AgentVersion:        "test",
		HeartbeatInterval:   10 * time.Millisecond,
		ShadowSyncInterval:  10 * time.Millisecond,
	}
	a := New(cfg, ch, exec, NewCanShadowSource(tools.NewMockCanBackend()))
	return a, ch
}

func TestHandleCommandRequest_ExecutesAndPublishesResponse(t *testing.T) {
	a, ch := newTestAgent()
	ctx := context.Background()
	if err := a.subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	intent := protocol.ParsedIntent{Action: protocol.ActionReply, Args: json.RawMessage(`{"message":"ack"}`)}
	envelope := protocol.NewCommandEnvelope("fleet-1", "device-1", "say ack", "operator@example.com")
	envelope.ParsedIntent = &intent
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	ch.deliver(ctx, a.topics.CommandRequest("device-1"), payload)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.published) != 1 {
		t.Fatalf("expected exactly one published response, got %d", len(ch.published))
	}
	var resp protocol.CommandResponse
	if err := json.Unmarshal(ch.published[0].payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != protocol.StatusCompleted {
		t.Errorf("expected Completed, got %s", resp.Status)
	}
	if resp.ResponseText != "ack" {
		t.Errorf("expected reply text 'ack', got %q", resp.ResponseText)
	}
}

func TestHandleCommandRequest_IgnoresOtherDevices(t *testing.T) {
	a, ch := newTestAgent()
	ctx := context.Background()
	if err := a.subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	envelope := protocol.NewCommandEnvelope("fleet-1", "some-other-device", "noop", "operator@example.com")
	payload, _ := json.Marshal(envelope)
	ch.deliver(ctx, a.topics.BroadcastCommandRequest(), payload)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.published) != 0 {
		t.Errorf("expected no publish for a command addressed to another device, got %d", len(ch.published))
	}
}

func TestHandleCommandRequest_FailedCanToolRaisesAlert(t *testing.T) {
	a, ch := newTestAgent()
	ctx := context.Background()
	if err := a.subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Omitting the required "pid" argument makes read_pid fail before it
	// ever reaches the CAN backend.
	intent := protocol.ParsedIntent{Action: protocol.ActionTool, Name: "read_pid", Args: json.RawMessage(`{}`)}
	envelope := protocol.NewCommandEnvelope("fleet-1", "device-1", "read rpm", "operator@example.com")
	envelope.ParsedIntent = &intent
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	ch.deliver(ctx, a.topics.CommandRequest("device-1"), payload)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	var sawAlert bool
	alertTopic := a.topics.AlertNotify("device-1")
	for _, msg := range ch.published {
		if msg.topic == alertTopic {
			sawAlert = true
			var alert protocol.Alert
			if err := json.Unmarshal(msg.payload, &alert); err != nil {
				t.Fatalf("unmarshal alert: %v", err)
			}
			if alert.DeviceID != "device-1" {
				t.Errorf("expected alert for device-1, got %q", alert.DeviceID)
			}
		}
	}
	if !sawAlert {
		t.Errorf("expected an alert publish for the failed CAN tool, got topics: %+v", ch.published)
	}
}

func TestHandleShadowDelta_MergesAndReReports(t *testing.T) {
	a, ch := newTestAgent()
	ctx := context.Background()
	if err := a.subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	delta := protocol.ShadowDelta{
		DeviceID:   "device-1",
		ShadowName: "vehicle",
		Delta:      json.RawMessage(`{"firmware":"1.3"}`),
		Version:    2,
	}
	payload, _ := json.Marshal(delta)
	ch.deliver(ctx, a.topics.ShadowDelta("device-1"), payload)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.published) != 1 {
		t.Fatalf("expected one re-report publish, got %d", len(ch.published))
	}
	var upd protocol.ShadowUpdate
	if err := json.Unmarshal(ch.published[0].payload, &upd); err != nil {
		t.Fatalf("unmarshal shadow update: %v", err)
	}
	if upd.ShadowName != "vehicle" {
		t.Errorf("expected shadow_name 'vehicle', got %q", upd.ShadowName)
	}
	var reported map[string]string
	if err := json.Unmarshal(upd.Reported, &reported); err != nil {
		t.Fatalf("unmarshal reported: %v", err)
	}
	if reported["firmware"] != "1.3" {
		t.Errorf("expected merged firmware '1.3', got %q", reported["firmware"])
	}
}

func TestHandleCommandRequest_RecordsLastCommandForShadowSnapshot(t *testing.T) {
	a, _ := newTestAgent()
	ctx := context.Background()
	if err := a.subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	intent := protocol.ParsedIntent{Action: protocol.ActionReply, Args: json.RawMessage(`{"message":"ack"}`)}
	envelope := protocol.NewCommandEnvelope("fleet-1", "device-1", "say ack", "operator@example.com")
	envelope.ParsedIntent = &intent
	payload, _ := json.Marshal(envelope)
	a.handleCommandRequest(ctx, a.topics.CommandRequest("device-1"), payload)

	last := a.state.lastCommandSnapshot()
	if last == nil {
		t.Fatal("expected a recorded last command")
	}
	if last.Tool != intent.Name {
		t.Errorf("expected last command tool %q, got %q", intent.Name, last.Tool)
	}

	a.publishShadowUpdate(ctx)
}

func TestPublishHeartbeat_PublishesOnlineStatus(t *testing.T) {
	a, ch := newTestAgent()
	a.publishHeartbeat(context.Background())

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.published) != 1 {
		t.Fatalf("expected one heartbeat publish, got %d", len(ch.published))
	}
	var hb protocol.Heartbeat
	if err := json.Unmarshal(ch.published[0].payload, &hb); err != nil {
		t.Fatalf("unmarshal heartbeat: %v", err)
	}
	if hb.Status != protocol.DeviceOnline {
		t.Errorf("expected Online status, got %s", hb.Status)
	}
}
