package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zeroclaw/fleetctl/internal/cloud"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

type handlers struct {
	svc *cloud.Service
	hub *wsHub
	log log.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- devices ---

type provisionDeviceRequest struct {
	DeviceID     string                `json:"device_id"`
	FleetID      string                `json:"fleet_id"`
	HardwareType protocol.HardwareType `json:"hardware_type"`
	VIN          string                `json:"vin,omitempty"`
}

func (h *handlers) provisionDevice(w http.ResponseWriter, r *http.Request) {
	var req provisionDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" || req.FleetID == "" {
		writeError(w, http.StatusBadRequest, "device_id and fleet_id are required")
		return
	}

	d := protocol.DeviceRecord{
		DeviceID:     req.DeviceID,
		FleetID:      req.FleetID,
		HardwareType: req.HardwareType,
		VIN:          req.VIN,
	}
	created, err := h.svc.ProvisionDevice(r.Context(), d)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) listDevices(w http.ResponseWriter, r *http.Request) {
	fleetID := r.URL.Query().Get("fleet_id")
	devices, err := h.svc.ListDevices(r.Context(), fleetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *handlers) getDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, ok, err := h.svc.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// --- commands ---

type submitCommandRequest struct {
	DeviceID    string `json:"device_id"`
	FleetID     string `json:"fleet_id"`
	Command     string `json:"command"`
	InitiatedBy string `json:"initiated_by"`
}

func (h *handlers) submitCommand(w http.ResponseWriter, r *http.Request) {
	var req submitCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" || req.FleetID == "" || req.Command == "" {
		writeError(w, http.StatusBadRequest, "device_id, fleet_id and command are required")
		return
	}

	envelope, err := h.svc.SubmitCommand(r.Context(), req.FleetID, req.DeviceID, req.Command, req.InitiatedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, envelope)
}

func (h *handlers) listCommands(w http.ResponseWriter, r *http.Request) {
	fleetID := r.URL.Query().Get("fleet_id")
	records, err := h.svc.ListCommands(r.Context(), fleetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCommandViews(records))
}

func (h *handlers) getCommand(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid command id")
		return
	}
	rec, ok, err := h.svc.GetCommand(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "command not found")
		return
	}
	writeJSON(w, http.StatusOK, toCommandView(rec))
}

// commandView flattens a store.CommandRecord's envelope/response pair
// plus its client-visible Status (a still-Pending command reads back as
// Timeout once the operator session has waited past TimeoutSecs+ε — see
// store.CommandRecord.ClientStatus), the shape a REST client actually
// wants rather than the storage-oriented CommandRecord itself.
type commandView struct {
	Envelope protocol.CommandEnvelope  `json:"envelope"`
	Response *protocol.CommandResponse `json:"response,omitempty"`
	Status   protocol.CommandStatus    `json:"status"`
}

func toCommandView(rec store.CommandRecord) commandView {
	return commandView{Envelope: rec.Envelope, Response: rec.Response, Status: rec.ClientStatus(time.Now().UTC())}
}

func toCommandViews(recs []store.CommandRecord) []commandView {
	out := make([]commandView, len(recs))
	for i, r := range recs {
		out[i] = toCommandView(r)
	}
	return out
}

// --- shadows ---

func (h *handlers) listShadowNames(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	names, err := h.svc.ListShadowNames(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type shadowView struct {
	Reported json.RawMessage `json:"reported"`
	Desired  json.RawMessage `json:"desired"`
	Delta    json.RawMessage `json:"delta"`
	Version  uint64          `json:"version"`
}

func (h *handlers) getShadow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	state, delta, err := h.svc.GetShadow(r.Context(), vars["id"], vars["name"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, shadowView{
		Reported: state.Reported,
		Desired:  state.Desired,
		Delta:    delta,
		Version:  state.Version,
	})
}

func (h *handlers) setDesiredShadow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var desired json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&desired); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fleetID := r.URL.Query().Get("fleet_id")
	state, err := h.svc.SetDesiredShadow(r.Context(), fleetID, vars["id"], vars["name"], desired)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// --- telemetry ---

func (h *handlers) listTelemetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := 0
	readings, err := h.svc.ListTelemetry(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// --- json helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
