package events

import (
	"context"
	"sync"

	"github.com/memevote/backend/monitoring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBufferSize = 32

// Hub is the in-process topic registry. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	logger zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		logger: log.With().Str("component", "eventHub").Logger(),
	}
}

// Subscription is one consumer's view of the hub, typically a WebSocket connection.
// It may be attached to any number of topics and receives their messages on a single
// buffered channel.
type Subscription struct {
	hub    *Hub
	ch     chan Message
	topics map[string]struct{}
	closed bool
}

// NewSubscription registers a consumer with a buffer of size messages.
func (h *Hub) NewSubscription(size int) *Subscription {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Subscription{
		hub:    h,
		ch:     make(chan Message, size),
		topics: make(map[string]struct{}),
	}
}

func (s *Subscription) Messages() <-chan Message {
	return s.ch
}

// Subscribe attaches the subscription to topic. It reports false if the subscription
// was already attached or has been closed.
func (s *Subscription) Subscribe(topic string) bool {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return false
	}
	if _, ok := s.topics[topic]; ok {
		return false
	}
	s.topics[topic] = struct{}{}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[s] = struct{}{}
	monitoring.WSSubscriptions.Inc()
	return true
}

func (s *Subscription) Unsubscribe(topic string) bool {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := s.topics[topic]; !ok {
		return false
	}
	h.detach(s, topic)
	return true
}

// Close detaches the subscription from every topic and closes its channel.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return
	}
	for topic := range s.topics {
		h.detach(s, topic)
	}
	s.closed = true
	close(s.ch)
}

// detach must be called with h.mu held
func (h *Hub) detach(s *Subscription, topic string) {
	delete(s.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	monitoring.WSSubscriptions.Dec()
}

// SubscriberCount returns the number of subscriptions attached to topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Publish(ctx context.Context, topic string, event Event) error {
	monitoring.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	h.Deliver(topic, event)
	return nil
}

// Deliver hands event to the local subscribers of topic without counting it as a new
// publication. The Redis relay uses it for events that arrive from the channel.
func (h *Hub) Deliver(topic string, event Event) {
	msg := Message{Topic: topic, Type: event.Type, Payload: event.Payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.topics[topic] {
		select {
		case s.ch <- msg:
		default:
			monitoring.EventsDropped.Inc()
			h.logger.Warn().
				Str("topic", topic).
				Str("type", string(event.Type)).
				Msg("subscriber buffer full, dropping event")
		}
	}
}
