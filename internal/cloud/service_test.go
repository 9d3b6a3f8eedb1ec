package cloud

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// fakeChannel records every publish rather than talking to a real
// broker, so Service tests can assert on what would have gone over the
// wire without a live MQTT connection.
type fakeChannel struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	topic   string
	qos     int
	payload []byte
}

var _ broker.Channel = (*fakeChannel)(nil)

func (f *fakeChannel) Start(ctx context.Context) error                      { return nil }
func (f *fakeChannel) Disconnect(ctx context.Context)                       {}
func (f *fakeChannel) AwaitConnection(ctx context.Context) error            { return nil }
func (f *fakeChannel) IsConnected() bool                                    { return true }
func (f *fakeChannel) Unsubscribe(ctx context.Context, topic string) error  { return nil }
func (f *fakeChannel) Subscribe(ctx context.Context, topic string, qos int, handler broker.MessageHandler) error {
	return nil
}

func (f *fakeChannel) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{topic: topic, qos: qos, payload: payload})
	return nil
}

func newService() (*Service, *fakeChannel) {
	ch := &fakeChannel{}
	bus := events.NewBus()
	go bus.Run(context.Background())
	svc := New(store.NewMemoryStore(), bus, ch, nil)
	return svc, ch
}

func TestSubmitCommand_PublishesAndPersists(t *testing.T) {
	svc, ch := newService()
	ctx := context.Background()

	env, err := svc.SubmitCommand(ctx, "fleet-1", "device-1", "what is the uptime?", "operator@example.com")
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}

	ch.mu.Lock()
	n := len(ch.published)
	ch.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected exactly one publish, got %d", n)
	}

	rec, ok, err := svc.GetCommand(ctx, env.CorrelationID)
	if err != nil || !ok {
		t.Fatalf("GetCommand: ok=%v err=%v", ok, err)
	}
	if rec.Status() != protocol.StatusPending {
		t.Errorf("expected Pending, got %s", rec.Status())
	}
}

func TestHandleAlert_PublishesAlertRaisedEvent(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	sub := svc.Bus.Subscribe()
	defer svc.Bus.Unsubscribe(sub)

	alert := protocol.Alert{
		DeviceID: "device-1",
		FleetID:  "fleet-1",
		Message:  `CAN tool "read_pid" failed: no response from ECU`,
	}
	if err := svc.HandleAlert(ctx, alert); err != nil {
		t.Fatalf("HandleAlert: %v", err)
	}

	select {
	case e := <-sub:
		if e.Type != events.TypeAlertRaised {
			t.Fatalf("expected TypeAlertRaised, got %s", e.Type)
		}
		payload, ok := e.Payload.(events.AlertRaisedPayload)
		if !ok {
			t.Fatalf("unexpected payload type: %T", e.Payload)
		}
		if payload.DeviceID != "device-1" || payload.Message != alert.Message {
			t.Errorf("unexpected payload: %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event on the bus")
	}
}

func TestShadowConvergence_DeltaThenEmpty(t *testing.T) {
	svc, ch := newService()
	ctx := context.Background()

	desired := json.RawMessage(`{"firmware":"1.3"}`)
	if _, err := svc.SetDesiredShadow(ctx, "fleet-1", "device-1", "vehicle", desired); err != nil {
		t.Fatalf("SetDesiredShadow: %v", err)
	}

	ch.mu.Lock()
	firstDeltaCount := len(ch.published)
	ch.mu.Unlock()
	if firstDeltaCount != 1 {
		t.Fatalf("expected a delta publish on first divergent desired set, got %d", firstDeltaCount)
	}

	if err := svc.HandleShadowUpdate(ctx, "fleet-1", protocol.ShadowUpdate{
		DeviceID:   "device-1",
		ShadowName: "vehicle",
		Reported:   json.RawMessage(`{"firmware":"1.3"}`),
	}); err != nil {
		t.Fatalf("HandleShadowUpdate: %v", err)
	}

	state, delta, err := svc.GetShadow(ctx, "device-1", "vehicle")
	if err != nil {
		t.Fatalf("GetShadow: %v", err)
	}
	if string(delta) != "{}" {
		t.Errorf("expected empty delta after convergence, got %s", delta)
	}
	if state.Version < 2 {
		t.Errorf("expected version to have incremented at least twice, got %d", state.Version)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.published) != 1 {
		t.Errorf("expected no further delta publish once converged, got %d total publishes", len(ch.published))
	}
}
