package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// DefaultChannel is the pub/sub channel events are mirrored to.
const DefaultChannel = "encounter-tracker:events"

// Publisher is the slice of the redis client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink mirrors bus events to a Redis pub/sub channel for external consumers.
type RedisSink struct {
	pub     Publisher
	channel string
	close   func() error
}

// NewRedisSink connects to url and checks the connection.
func NewRedisSink(ctx context.Context, url, channel string) (*RedisSink, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "connect to redis")
	}
	return newSink(client, channel, client.Close), nil
}

func newSink(pub Publisher, channel string, closeFn func() error) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{pub: pub, channel: channel, close: closeFn}
}

// Run publishes every event until the channel closes or ctx is done.
func (s *RedisSink) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				slog.Warn("encode event failed", "kind", e.Kind, "error", err)
				continue
			}
			if err := s.pub.Publish(ctx, s.channel, data).Err(); err != nil {
				slog.Warn("redis publish failed", "kind", e.Kind, "error", err)
			}
		}
	}
}

func (s *RedisSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
