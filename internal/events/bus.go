package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"authhub/api/internal/models"
)

type Type string

const (
	UserRegistered         Type = "user.registered"
	PasswordResetRequested Type = "password.reset.requested"
)

// Event is published after the state change it describes has been persisted.
type Event struct {
	Type       Type
	Account    models.Account
	Metadata   map[string]string
	OccurredAt time.Time
}

type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, event Event) error

func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus delivers events synchronously to listeners in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]Listener)}
}

func (b *Bus) Subscribe(t Type, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[t] = append(b.listeners[t], l)
}

// Publish runs every listener and joins their errors.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := l.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

// OrNoop returns p, or a publisher that drops events when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
