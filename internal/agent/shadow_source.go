package agent

import (
	"context"
	"encoding/json"

	"github.com/zeroclaw/fleetctl/internal/tools"
)

// CanShadowSource reports the device's current state from its CAN
// backend, giving the shadow reporter task something concrete to sync
// without depending on the tool registry or executor.
type CanShadowSource struct {
	can tools.CanBackend
}

// NewCanShadowSource builds a ShadowSource backed by can.
func NewCanShadowSource(can tools.CanBackend) *CanShadowSource {
	return &CanShadowSource{can: can}
}

// ReportedState snapshots VIN and stored DTCs into the shadow's
// "vehicle" document. A read failure on either field degrades to
// omitting that key rather than failing the whole sync.
func (c *CanShadowSource) ReportedState(ctx context.Context) (json.RawMessage, error) {
	state := map[string]any{}

	if vin, err := c.can.ReadVIN(ctx); err == nil {
		state["vin"] = vin
	}
	if dtcs, err := c.can.ReadDTCs(ctx); err == nil {
		state["dtcs"] = dtcs
	}

	return json.Marshal(state)
}
