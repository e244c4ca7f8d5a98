package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/config"
)

// RedisRelay shares realtime events between instances over a redis channel.
// Each message is tagged with the publishing instance so it is not echoed back.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
}

type relayMessage struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// NewRedisRelay connects to redis and verifies the connection
func NewRedisRelay(cfg config.RedisConfig, instance string) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "toto:realtime"
	}

	return &RedisRelay{client: client, channel: channel, instance: instance}, nil
}

// Publish implements Relay
func (r *RedisRelay) Publish(ctx context.Context, data []byte) error {
	msg, err := json.Marshal(relayMessage{Origin: r.instance, Payload: data})
	if err != nil {
		return errors.Wrap(err, "failed to marshal relay message")
	}
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return errors.Wrap(err, "failed to publish to Redis")
	}
	return nil
}

// Run delivers events published by other instances to hub until ctx ends
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "failed to subscribe to Redis channel")
	}
	log.Info().Str("channel", r.channel).Str("instance", r.instance).Msg("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			origin, payload, err := decodeRelayMessage([]byte(m.Payload))
			if err != nil {
				log.Warn().Err(err).Msg("ignoring malformed relay message")
				continue
			}
			if origin == r.instance {
				continue
			}
			if err := hub.DeliverRemote(ctx, payload); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				log.Warn().Err(err).Msg("failed to deliver relayed event")
			}
		}
	}
}

// Close closes the redis connection
func (r *RedisRelay) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func decodeRelayMessage(data []byte) (string, []byte, error) {
	var m relayMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, err
	}
	if len(m.Payload) == 0 {
		return "", nil, errors.New("empty relay payload")
	}
	return m.Origin, m.Payload, nil
}
