package memory

import (
	"context"
	"sync"

	"github.com/aescanero/quizcast/pkg/ports"
)

// subscription is one registered handler, identified by its pointer so
// it can be removed individually.
type subscription struct {
	handler ports.EventHandler
}

// InMemoryEventBus implements ports.EventBus with direct handler fan-out.
// Handlers run asynchronously; a slow subscriber never blocks the bot.
// Subscriptions are scoped to the Subscribe context: cancelling it
// removes only that handler, so concurrent subscribers on one topic do
// not affect each other.
type InMemoryEventBus struct {
	subscribers map[string][]*subscription
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]*subscription),
	}
}

// Publish publishes an event to all subscribers of a topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	e.mu.RLock()
	subs := make([]*subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	for _, sub := range subs {
		go func(s *subscription) {
			// Handler errors are the subscriber's problem to log
			_ = s.handler(ctx, event)
		}(sub)
	}

	return nil
}

// Subscribe subscribes to events on a specific topic. The subscription
// lives until ctx is cancelled.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{handler: handler}

	e.mu.Lock()
	e.subscribers[topic] = append(e.subscribers[topic], sub)
	e.mu.Unlock()

	// Clean up this subscription alone on context cancellation
	go func() {
		<-ctx.Done()
		e.remove(topic, sub)
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers, topic)
	return nil
}

// Close closes the event bus and cleans up resources
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string][]*subscription)
	return nil
}

// remove drops a single subscription from a topic
func (e *InMemoryEventBus) remove(topic string, sub *subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, s := range subs {
		if s == sub {
			e.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
