// Package events implements the cloud bridge's bounded in-process
// publish-subscribe bus. Every REST handler and bridge ingest path
// publishes typed state-change events without knowledge of who, if
// anyone, is listening; live observer sessions subscribe and drain at
// their own pace.
package events

import "context"

// Capacity is the per-subscriber buffer depth. A subscriber that falls
// this far behind has events dropped rather than blocking the producer.
const Capacity = 256

// Type tags the coarse kind of a published event so subscribers can
// pattern-match without inspecting Payload's concrete type.
type Type string

const (
	TypeCommandDispatched   Type = "command_dispatched"
	TypeCommandResponse     Type = "command_response"
	TypeDeviceHeartbeat     Type = "device_heartbeat"
	TypeDeviceStatusChanged Type = "device_status_changed"
	TypeDeviceProvisioned   Type = "device_provisioned"
	TypeTelemetryIngested   Type = "telemetry_ingested"
	TypeShadowUpdated       Type = "shadow_updated"
	TypeAlertRaised         Type = "alert_raised"
)

// Event is the envelope every subscriber receives. Payload is one of the
// structs in payloads.go, matching Type.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// Bus fans a single publish out to every active subscriber's buffered
// channel. The zero value is not usable; construct with NewBus and run
// its loop with Run before publishing.
type Bus struct {
	register   chan chan Event
	unregister chan chan Event
	publish    chan Event
}

// NewBus builds an unstarted Bus. Call Run in its own goroutine before
// any Publish/Subscribe calls are expected to take effect.
func NewBus() *Bus {
	return &Bus{
		register:   make(chan chan Event),
		unregister: make(chan chan Event),
		publish:    make(chan Event),
	}
}

// Run is the bus's single fan-out loop. It owns the subscriber set
// exclusively, so no mutex is needed: every mutation and every delivery
// happens on this goroutine. Run returns when ctx is cancelled, after
// closing every subscriber channel.
func (b *Bus) Run(ctx context.Context) {
	subscribers := make(map[chan Event]struct{})
	for {
		select {
		case <-ctx.Done():
			for ch := range subscribers {
				close(ch)
			}
			return
		case ch := <-b.register:
			subscribers[ch] = struct{}{}
		case ch := <-b.unregister:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}
		case e := <-b.publish:
			for ch := range subscribers {
				select {
				case ch <- e:
				default:
					// Slow subscriber; drop this event rather than
					// block the producer or every other subscriber.
				}
			}
		}
	}
}

// Subscribe registers a new buffered channel and returns it. Callers
// must eventually call Unsubscribe with the same channel, or its slot
// leaks until Run's context is cancelled.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, Capacity)
	b.register <- ch
	return ch
}

// Unsubscribe removes ch from the fan-out set and closes it.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.unregister <- ch
}

// Publish fans e out to every current subscriber. It blocks only until
// the Run loop accepts e onto its internal channel, never on any
// individual subscriber's delivery.
func (b *Bus) Publish(e Event) {
	b.publish <- e
}
