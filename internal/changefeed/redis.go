package changefeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "fanaf:registrations:changes"

// RedisNotifier fans signals out over Redis pub/sub. Delivery is
// fire-and-forget: instances that are down miss signals and catch up on
// their next full load. A resubscription after a dropped connection is
// reported to the listener as a reload signal.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier builds a notifier on channel. The client lifecycle is
// managed by the caller.
func NewRedisNotifier(client *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Notify(ctx context.Context, sig Signal) error {
	payload, err := encodeSignal(sig)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Listen(ctx context.Context, fn func(Signal)) error {
	pubsub := n.client.Subscribe(ctx, n.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	messages := pubsub.ChannelWithSubscriptions()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			n.dispatch(ctx, msg, fn)
		}
	}
}

func (n *RedisNotifier) dispatch(ctx context.Context, msg any, fn func(Signal)) {
	switch m := msg.(type) {
	case *redis.Subscription:
		if m.Kind != "subscribe" {
			return
		}
		n.logger.WarnContext(ctx, "change channel resubscribed, requesting full reload",
			"channel", n.channel,
		)
		fn(Signal{ID: uuid.NewString(), Kind: models.EventReload, At: time.Now().UTC()})
	case *redis.Message:
		sig, err := decodeSignal([]byte(m.Payload))
		if err != nil {
			n.logger.WarnContext(ctx, "dropping malformed change signal",
				"channel", n.channel,
				"error", err,
			)
			return
		}
		fn(sig)
	}
}

// Close is a no-op; the client lifecycle is managed externally.
func (n *RedisNotifier) Close() error { return nil }
