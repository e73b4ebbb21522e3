package sse

import (
	"net/http"
	"sync"
	"time"
)

// Broker broadcasts events to every connected /api/events subscriber.
// Slow consumers are skipped rather than backing up publishers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[chan Event]struct{})}
}

// Publish broadcasts an event to all subscribers.
func (b *Broker) Publish(eventType, data string) {
	evt := Event{Type: eventType, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// slow consumer, skip
		}
	}
}

func (b *Broker) subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
}

// SubscriberCount returns the number of connected subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream, err := NewStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	if err := stream.Comment("connected"); err != nil {
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if err := stream.Send(evt); err != nil {
				return
			}
		case <-keepalive.C:
			if err := stream.Comment("keepalive"); err != nil {
				return
			}
		}
	}
}
