// Package bus is the message bus panelsync uses to reach remote objects
// and to mirror dashboard events to out-of-process shells. The NATS
// implementation is used in deployments; MemoryBus serves tests and the
// single-process demo.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a request times out waiting for a response.
	ErrTimeout = errors.New("request timeout")

	// ErrNoResponders is returned when no subscribers are available to handle a request.
	ErrNoResponders = errors.New("no responders available")

	// ErrClosed is returned when operating on a closed bus or subscription.
	ErrClosed = errors.New("bus or subscription closed")
)

// MessageBus carries publish/subscribe and request/reply traffic.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends data to every subscriber of subject without waiting
	// for delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers handler for subject. Messages for one
	// subscription are delivered in order on a single goroutine.
	// "*" matches one token and ">" matches the remaining tokens.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Request publishes data and waits for the first reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// MessageHandler processes a message. For requests, the returned bytes
// are sent back as the reply; nil sends nothing.
type MessageHandler func(msg *Message) []byte

// Message is a delivered bus message.
type Message struct {
	Subject string
	Data    []byte
	ReplyTo string
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Subject() string
}

// Config holds configuration for creating a MessageBus.
type Config struct {
	// URL is the NATS server URL. Ignored by MemoryBus.
	URL string

	// Name identifies this client to the server.
	Name string

	// Timeout bounds connects and requests without their own deadline.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "panelsync",
		Timeout: 10 * time.Second,
	}
}
