// Package events carries session notifications, such as a backend token
// rejection, from the API client to the session manager.
package events

import (
	"context"
	"errors"
)

// AuthExpired is published when the backend rejects a session's token.
const AuthExpired = "auth.expired"

// ErrClosed is returned when publishing to a closed bus.
var ErrClosed = errors.New("event bus closed")

// Event is a notification emitted by the request layer.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	// Token is the credential the backend rejected, so a newer login is not cleared.
	Token string `json:"token"`
}

// Publisher is the side of the bus the request layer sees.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus is a bounded channel-backed event bus with a single consumer.
type Bus struct {
	ch     chan Event
	closed chan struct{}
}

// NewBus creates a bus buffering up to size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{ch: make(chan Event, size), closed: make(chan struct{})}
}

// Publish enqueues an event, blocking while the buffer is full.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}
	select {
	case b.ch <- evt:
		return nil
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume streams events until ctx is cancelled or the bus is closed.
func (b *Bus) Consume(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-b.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-b.closed:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops the bus. Safe to call more than once.
func (b *Bus) Close() {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
}
