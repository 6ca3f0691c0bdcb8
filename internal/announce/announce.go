// Package announce broadcasts admin announcements to every instance through
// a Redis pub/sub channel.
package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/playperu/sprintstory/internal/sprint"
)

// Channel is the Redis channel announcements travel on.
const Channel = "sprint:announcements"

// ErrNoTransport is reported when no Redis connection backs announcements.
var ErrNoTransport = fmt.Errorf("announcement channel is not configured: %w", sprint.ErrUnconfigured)

type Announcement struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// New builds an announcement with a fresh id.
func New(message string, now time.Time) (Announcement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Announcement{}, fmt.Errorf("message is required: %w", sprint.ErrInvalidArgument)
	}
	return Announcement{ID: uuid.NewString(), Message: message, SentAt: now.UTC()}, nil
}

// Decode parses a payload received from the channel.
func Decode(payload string) (Announcement, error) {
	var a Announcement
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return Announcement{}, fmt.Errorf("decoding announcement: %w", err)
	}
	if a.Message == "" {
		return Announcement{}, fmt.Errorf("announcement %q has no message", a.ID)
	}
	return a, nil
}

type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Announce publishes message and reports how many subscribers received it.
func (p *Publisher) Announce(ctx context.Context, message string) (Announcement, int64, error) {
	a, err := New(message, time.Now())
	if err != nil {
		return Announcement{}, 0, err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return Announcement{}, 0, err
	}
	n, err := p.rdb.Publish(ctx, Channel, data).Result()
	if err != nil {
		return Announcement{}, 0, fmt.Errorf("publishing announcement: %w", err)
	}
	return a, n, nil
}

// Sink receives relayed announcements.
type Sink interface {
	Announce(a Announcement)
}

// Relay forwards announcements from Redis to sink until ctx is done.
func Relay(ctx context.Context, logger *slog.Logger, rdb *redis.Client, sink Sink) error {
	sub := rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", Channel, err)
	}
	logger.Info("relaying announcements", "channel", Channel)

	return Forward(ctx, logger, sub.Channel(), sink)
}

// Forward decodes messages from ch into sink until ch closes or ctx is done.
func Forward(ctx context.Context, logger *slog.Logger, ch <-chan *redis.Message, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			a, err := Decode(msg.Payload)
			if err != nil {
				logger.Warn("dropping announcement", "error", err)
				continue
			}
			sink.Announce(a)
		}
	}
}
