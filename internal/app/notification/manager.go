// Package notification provides the subscription manager used to deliver
// state snapshots to renderers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Listener receives broadcast values.
type Listener[T any] func(T)

// subscription represents a subscriber's subscription.
type subscription[T any] struct {
	id       string
	listener Listener[T]
}

// Manager manages subscriptions and broadcasting.
// Delivery is synchronous and in subscription order.
type Manager[T any] struct {
	mu            sync.RWMutex
	subscriptions []*subscription[T]
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		subscriptions: make([]*subscription[T], 0),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager[T]) Subscribe(listener Listener[T]) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions = append(m.subscriptions, &subscription[T]{
		id:       id,
		listener: listener,
	})
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (m *Manager[T]) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscriptions {
		if sub.id == subscriptionID {
			m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
			return
		}
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager[T]) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast delivers v to every subscriber on the calling goroutine.
// A panicking listener is logged and does not stop delivery to the others.
func (m *Manager[T]) Broadcast(v T) {
	m.mu.RLock()
	// Copy subscriptions so listeners may unsubscribe during delivery
	subs := make([]*subscription[T], len(m.subscriptions))
	copy(subs, m.subscriptions)
	m.mu.RUnlock()

	for _, sub := range subs {
		m.deliver(sub, v)
	}
}

func (m *Manager[T]) deliver(sub *subscription[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("notification: listener panicked: subscription=%s panic=%v", sub.id, r)
		}
	}()
	sub.listener(v)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager[T]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make([]*subscription[T], 0)
}
