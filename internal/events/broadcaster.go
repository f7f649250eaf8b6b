package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"github.com/jwebster45206/npc-engine/pkg/world"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis Pub/Sub channel every simulation event goes to.
const Channel = "npc-events"

// Event is the envelope published to Redis. Type is the dialogue or world
// event type; Data is that event as JSON.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcaster publishes simulation events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishDialogue publishes a dialogue transition.
func (b *Broadcaster) PublishDialogue(ctx context.Context, ev dialogue.Event) error {
	return b.publish(ctx, string(ev.Type), ev)
}

// PublishWorld publishes a world event such as a day rollover.
func (b *Broadcaster) PublishWorld(ctx context.Context, ev world.Event) error {
	return b.publish(ctx, string(ev.Type), ev)
}

func (b *Broadcaster) publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := b.redisClient.Publish(ctx, Channel, msg).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", Channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", Channel, "event_type", eventType)
	return nil
}

// Forward publishes everything received on the given subscriptions until ctx
// is cancelled or both channels are closed. Publish failures are logged and
// do not stop forwarding.
func (b *Broadcaster) Forward(ctx context.Context, dialogueEvents <-chan dialogue.Event, worldEvents <-chan world.Event) {
	for dialogueEvents != nil || worldEvents != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dialogueEvents:
			if !ok {
				dialogueEvents = nil
				continue
			}
			_ = b.PublishDialogue(ctx, ev)
		case ev, ok := <-worldEvents:
			if !ok {
				worldEvents = nil
				continue
			}
			_ = b.PublishWorld(ctx, ev)
		}
	}
}
