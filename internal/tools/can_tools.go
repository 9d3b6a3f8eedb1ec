package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type readPIDArgs struct {
	PID string `json:"pid"`
}

type canMonitorArgs struct {
	DurationSecs float64 `json:"duration_secs"`
}

func canTools(backend CanBackend) []Tool {
	return []Tool{
		{
			Name:        "read_pid",
			Description: "Read a single OBD-II parameter by its hex PID.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"pid":{"type":"string"}},"required":["pid"]}`),
			Kind:        KindCan,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args readPIDArgs
				if err := json.Unmarshal(raw, &args); err != nil || args.PID == "" {
					return Result{ToolName: "read_pid", Success: false, Error: "missing required argument: pid"}
				}
				value, unit, err := backend.ReadPID(ctx, args.PID)
				if err != nil {
					return Result{ToolName: "read_pid", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"pid": args.PID, "value": value, "unit": unit})
				return Result{
					ToolName: "read_pid",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("PID %s = %.1f %s", args.PID, value, unit),
				}
			},
		},
		{
			Name:        "read_dtcs",
			Description: "Read stored diagnostic trouble codes.",
			Schema:      json.RawMessage(`{"type":"object","properties":{}}`),
			Kind:        KindCan,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				codes, err := backend.ReadDTCs(ctx)
				if err != nil {
					return Result{ToolName: "read_dtcs", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"codes": codes})
				summary := fmt.Sprintf("%d stored DTC(s)", len(codes))
				if len(codes) == 0 {
					summary = "no stored DTCs"
				}
				return Result{ToolName: "read_dtcs", Success: true, Data: data, Summary: summary}
			},
		},
		{
			Name:        "read_vin",
			Description: "Read the vehicle identification number.",
			Schema:      json.RawMessage(`{"type":"object","properties":{}}`),
			Kind:        KindCan,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				vin, err := backend.ReadVIN(ctx)
				if err != nil {
					return Result{ToolName: "read_vin", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"vin": vin})
				return Result{ToolName: "read_vin", Success: true, Data: data, Summary: vin}
			},
		},
		{
			Name:        "read_freeze",
			Description: "Read the freeze-frame snapshot captured with the first DTC.",
			Schema:      json.RawMessage(`{"type":"object","properties":{}}`),
			Kind:        KindCan,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				frame, err := backend.ReadFreezeFrame(ctx)
				if err != nil {
					return Result{ToolName: "read_freeze", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(frame)
				return Result{ToolName: "read_freeze", Success: true, Data: data, Summary: "freeze frame captured"}
			},
		},
		{
			Name:        "can_monitor",
			Description: "Monitor the CAN bus for a bounded duration and report observed frame counts.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"duration_secs":{"type":"number"}},"required":["duration_secs"]}`),
			Kind:        KindCan,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args canMonitorArgs
				if err := json.Unmarshal(raw, &args); err != nil || args.DurationSecs <= 0 {
					args.DurationSecs = 3
				}
				frames, err := backend.Monitor(ctx, time.Duration(args.DurationSecs*float64(time.Second)))
				if err != nil {
					return Result{ToolName: "can_monitor", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"frames": frames})
				return Result{
					ToolName: "can_monitor",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("observed %d distinct CAN ids over %.0fs", len(frames), args.DurationSecs),
				}
			},
		},
	}
}
