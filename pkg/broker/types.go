package broker

import (
	"context"
)

// MessageHandler processes one received message.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Channel is the capability layer hiding the underlying pub/sub transport
// behind two primitive operations — Publish and Subscribe — plus the
// connection lifecycle. Typed helpers per message kind are built on top of
// this in client_typed.go; nothing above this interface depends on paho or
// autopaho directly.
type Channel interface {
	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic at the given QoS.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter (which may contain
	// MQTT wildcards). If the connection is lost and restored, the channel
	// re-subscribes automatically.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Unsubscribe removes the handler and sends an UNSUBSCRIBE packet.
	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the channel is connected to the broker.
	AwaitConnection(ctx context.Context) error

	// IsConnected returns true if the channel is currently connected.
	IsConnected() bool
}
