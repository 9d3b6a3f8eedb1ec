package executor

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	fsmutil "github.com/zeroclaw/fleetctl/internal/pkg/util/fsm"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

var statusMachineLog = log.WithName("executor.statemachine")

// statuses the FSM's states, matching protocol.CommandStatus exactly.
// The executor only ever drives Pending -> Processing -> one terminal
// state, or Cancelled via the "cancel" event. Sent belongs to the
// cloud-side lifecycle and is not a state of this machine.
func newStatusMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(protocol.StatusPending),
		fsm.Events{
			{Name: "dispatch", Src: []string{string(protocol.StatusPending)}, Dst: string(protocol.StatusProcessing)},
			{Name: "complete", Src: []string{string(protocol.StatusProcessing)}, Dst: string(protocol.StatusCompleted)},
			{Name: "fail", Src: []string{string(protocol.StatusProcessing)}, Dst: string(protocol.StatusFailed)},
			{Name: "timeout", Src: []string{string(protocol.StatusProcessing)}, Dst: string(protocol.StatusTimeout)},
			{Name: "cancel", Src: []string{string(protocol.StatusPending), string(protocol.StatusProcessing)}, Dst: string(protocol.StatusCancelled)},
		},
		fsm.Callbacks{
			"enter_state": fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				statusMachineLog.Debug("command status transition", "event", e.Event, "from", e.Src, "to", e.Dst)
				return nil
			}),
		},
	)
}

// drive advances the machine through dispatch then the named terminal
// event, returning the resulting CommandStatus. A guard violation (an
// event fired from a state that doesn't permit it) is a bug in the
// executor's own call sequence, not an operator-facing error, so it
// panics rather than silently producing an inconsistent response.
func drive(event string) protocol.CommandStatus {
	m := newStatusMachine()
	if err := m.Event(context.Background(), "dispatch"); err != nil {
		panic(fmt.Sprintf("executor: invalid dispatch transition: %v", err))
	}
	if err := m.Event(context.Background(), event); err != nil {
		panic(fmt.Sprintf("executor: invalid %s transition: %v", event, err))
	}
	return protocol.CommandStatus(m.Current())
}
