// Package relay fans hover transitions out to server-sent-event subscribers.
package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	subscriberBufSize = 256
	historySize       = 64
)

// Feed names published by the host service.
const (
	FeedTransition = "transition"
	FeedReady      = "ready"
)

// Event is a single message sent via SSE.
type Event struct {
	ID      string
	Feed    string
	Payload string
}

// Broker fans out events to all subscribed SSE clients and remembers the
// most recent ones so reconnecting clients can catch up.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	history     []Event
	nextID      atomic.Int64
	published   atomic.Int64
}

// NewBroker creates a new SSE event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a new client. Returns the subscriber ID and a channel
// to receive events on. The channel is buffered; slow consumers will have
// events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id, ch, _ := b.SubscribeSince("")
	return id, ch
}

// SubscribeSince is Subscribe plus the remembered events published after
// lastID. An unknown lastID yields the whole history; an empty one yields
// nothing. No event is both in the backlog and on the channel.
func (b *Broker) SubscribeSince(lastID string) (int64, <-chan Event, []Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = ch
	if lastID == "" {
		return id, ch, nil
	}
	start := 0
	for i, evt := range b.history {
		if evt.ID == lastID {
			start = i + 1
			break
		}
	}
	return id, ch, append([]Event(nil), b.history[start:]...)
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers, stamping an id when the event
// has none. Non-blocking: slow clients have events dropped.
func (b *Broker) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	b.published.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:historySize-1]
	}
	b.history = append(b.history, evt)
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// PublishJSON marshals v as the payload of a feed event.
func (b *Broker) PublishJSON(feed string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("relay: marshal %s event: %w", feed, err)
	}
	b.Publish(Event{Feed: feed, Payload: string(data)})
	return nil
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Published returns how many events have been published.
func (b *Broker) Published() int64 { return b.published.Load() }
