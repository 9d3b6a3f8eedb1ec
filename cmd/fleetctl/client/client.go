// Package client is fleetctl's REST client over fleet-cloud's
// /api/v1 surface: one thin wrapper per endpoint, decoding JSON straight
// into the same wire types fleet-cloud's handlers encode.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// Client is a thin HTTP wrapper around one fleet-cloud instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8443").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CommandView mirrors restapi's commandView: an envelope/response pair
// plus the derived status a CLI user actually wants to see.
type CommandView struct {
	Envelope protocol.CommandEnvelope  `json:"envelope"`
	Response *protocol.CommandResponse `json:"response,omitempty"`
	Status   protocol.CommandStatus    `json:"status"`
}

// ShadowView mirrors restapi's shadowView.
type ShadowView struct {
	Reported json.RawMessage `json:"reported"`
	Desired  json.RawMessage `json:"desired"`
	Delta    json.RawMessage `json:"delta"`
	Version  uint64          `json:"version"`
}

// ProvisionDevice registers a device with the fleet.
func (c *Client) ProvisionDevice(ctx context.Context, d protocol.DeviceRecord) (protocol.DeviceRecord, error) {
	var out protocol.DeviceRecord
	err := c.do(ctx, http.MethodPost, "/api/v1/devices", d, &out)
	return out, err
}

// ListDevices returns every device, optionally filtered by fleetID.
func (c *Client) ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error) {
	var out []protocol.DeviceRecord
	q := url.Values{}
	if fleetID != "" {
		q.Set("fleet_id", fleetID)
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/devices?"+q.Encode(), nil, &out)
	return out, err
}

// GetDevice fetches one device by id.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, error) {
	var out protocol.DeviceRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(deviceID), nil, &out)
	return out, err
}

// SubmitCommand dispatches a command to a device.
func (c *Client) SubmitCommand(ctx context.Context, fleetID, deviceID, command, initiatedBy string) (protocol.CommandEnvelope, error) {
	req := map[string]string{
		"fleet_id":     fleetID,
		"device_id":    deviceID,
		"command":      command,
		"initiated_by": initiatedBy,
	}
	var out protocol.CommandEnvelope
	err := c.do(ctx, http.MethodPost, "/api/v1/commands", req, &out)
	return out, err
}

// ListCommands returns every tracked command, optionally filtered by fleetID.
func (c *Client) ListCommands(ctx context.Context, fleetID string) ([]CommandView, error) {
	var out []CommandView
	q := url.Values{}
	if fleetID != "" {
		q.Set("fleet_id", fleetID)
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/commands?"+q.Encode(), nil, &out)
	return out, err
}

// GetCommand fetches one command by its correlation id.
func (c *Client) GetCommand(ctx context.Context, id uuid.UUID) (CommandView, error) {
	var out CommandView
	err := c.do(ctx, http.MethodGet, "/api/v1/commands/"+id.String(), nil, &out)
	return out, err
}

// GetShadow fetches one device shadow by name.
func (c *Client) GetShadow(ctx context.Context, deviceID, shadowName string) (ShadowView, error) {
	var out ShadowView
	path := fmt.Sprintf("/api/v1/devices/%s/shadows/%s", url.PathEscape(deviceID), url.PathEscape(shadowName))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SetDesiredShadow writes a new desired document for one device shadow.
func (c *Client) SetDesiredShadow(ctx context.Context, fleetID, deviceID, shadowName string, desired json.RawMessage) (protocol.ShadowState, error) {
	var out protocol.ShadowState
	path := fmt.Sprintf("/api/v1/devices/%s/shadows/%s/desired?fleet_id=%s",
		url.PathEscape(deviceID), url.PathEscape(shadowName), url.QueryEscape(fleetID))
	err := c.do(ctx, http.MethodPut, path, desired, &out)
	return out, err
}

// ListTelemetry returns the most recent telemetry readings for a device.
func (c *Client) ListTelemetry(ctx context.Context, deviceID string) ([]protocol.TelemetryReading, error) {
	var out []protocol.TelemetryReading
	err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(deviceID)+"/telemetry", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
