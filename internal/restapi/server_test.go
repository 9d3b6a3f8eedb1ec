package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeroclaw/fleetctl/internal/cloud"
	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/broker"
)

// noopChannel discards every publish; these tests only exercise HTTP
// request/response behavior, never what reaches the broker.
type noopChannel struct{}

var _ broker.Channel = noopChannel{}

func (noopChannel) Start(ctx context.Context) error                      { return nil }
func (noopChannel) Disconnect(ctx context.Context)                       {}
func (noopChannel) AwaitConnection(ctx context.Context) error            { return nil }
func (noopChannel) IsConnected() bool                                    { return true }
func (noopChannel) Unsubscribe(ctx context.Context, topic string) error  { return nil }
func (noopChannel) Subscribe(ctx context.Context, topic string, qos int, handler broker.MessageHandler) error {
	return nil
}
func (noopChannel) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	return nil
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	bus := events.NewBus()
	go bus.Run(context.Background())
	svc := cloud.New(store.NewMemoryStore(), bus, noopChannel{}, nil)
	return &handlers{svc: svc, hub: newWSHub(bus)}
}

func TestProvisionAndGetDevice(t *testing.T) {
	h := newTestHandlers(t)

	body, _ := json.Marshal(provisionDeviceRequest{DeviceID: "device-1", FleetID: "fleet-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.provisionDevice(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/devices/device-1", nil)
	getReq = withMuxVars(getReq, map[string]string{"id": "device-1"})
	getRec := httptest.NewRecorder()
	h.getDevice(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/missing", nil)
	req = withMuxVars(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	h.getDevice(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitCommand_RejectsMissingFields(t *testing.T) {
	h := newTestHandlers(t)

	body, _ := json.Marshal(submitCommandRequest{DeviceID: "device-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.submitCommand(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitCommand_Succeeds(t *testing.T) {
	h := newTestHandlers(t)

	body, _ := json.Marshal(submitCommandRequest{
		DeviceID:    "device-1",
		FleetID:     "fleet-1",
		Command:     "what is the uptime?",
		InitiatedBy: "operator@example.com",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.submitCommand(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}
