package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/memevote/backend/monitoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultRedisChannel = "memevote:events"

type relayMessage struct {
	Topic   string          `json:"topic"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBroker relays events through a Redis pub/sub channel so that subscribers on every
// instance see events published on any instance. Run must be running for events to reach
// the local hub, including events published by this instance.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

func NewRedisBroker(client *redis.Client, channel string, hub *Hub) *RedisBroker {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisBroker{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  log.With().Str("component", "redisBroker").Str("channel", channel).Logger(),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once Run's subscription has been confirmed by Redis.
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("error encoding %s payload: %w", event.Type, err)
	}
	data, err := json.Marshal(relayMessage{Topic: topic, Type: event.Type, Payload: payload})
	if err != nil {
		return fmt.Errorf("error encoding %s event: %w", event.Type, err)
	}

	monitoring.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		// keep this instance's subscribers informed even when the relay is down
		b.hub.Deliver(topic, event)
		return fmt.Errorf("error publishing to redis: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and delivers every message into the local hub
// until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("error subscribing to redis channel %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info().Msg("relaying events from redis")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				b.logger.Warn().Err(err).Msg("discarding malformed relay message")
				continue
			}
			b.hub.Deliver(relayed.Topic, Event{Type: relayed.Type, Payload: relayed.Payload})
		}
	}
}
