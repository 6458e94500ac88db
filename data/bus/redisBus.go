package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/utils"
	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// Handler processes one message payload. Returning nil acknowledges the
// message. Malformed payloads must be logged and dropped by the handler
// itself (return nil), they are never redelivered.
type Handler func(ctx context.Context, payload []byte) error

// streamClient is the slice of redis.Client the bus needs.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// RedisBus is a durable publish/subscribe transport on Redis Streams.
// Consumer groups give each group at-least-once delivery with every message
// going to exactly one consumer within the group.
type RedisBus struct {
	redis streamClient
	cfg   *config.Config
}

func NewRedisBus(redisClient *redis.Client, cfg *config.Config) *RedisBus {
	return &RedisBus{redis: redisClient, cfg: cfg}
}

// Publish appends payload to stream and returns the outcome to the caller.
// The call is bounded by Bus.PublishTimeout.
func (b *RedisBus) Publish(ctx context.Context, stream string, payload []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Bus.PublishTimeout)
	defer cancel()

	id, err := b.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: b.cfg.Bus.StreamMaxLen,
		Approx: true,
		Values: map[string]any{payloadField: payload},
	}).Result()

	if err != nil {
		slog.Error(
			"failed on redis.XAdd",
			slog.String("rqID", rqID),
			slog.String("stream", stream),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("publish to stream %s: %w", stream, err)
	}

	slog.Debug("event published", slog.String("rqID", rqID), slog.String("stream", stream), slog.String("msgID", id))

	return nil
}

// PublishAsync publishes in a background goroutine. The returned channel is
// buffered and receives exactly one result, so the caller may wait on it or
// leave it to a logging goroutine.
func (b *RedisBus) PublishAsync(ctx context.Context, stream string, payload []byte) <-chan error {
	res := make(chan error, 1)

	// detach from the caller's cancellation, keep the request id
	ctx = utils.CtxWithRqID(context.Background(), utils.GetRequestIDFromCtx(ctx))

	go func() {
		res <- b.Publish(ctx, stream, payload)
	}()

	return res
}

// Subscribe joins the consumer group on stream and dispatches messages to
// handler until ctx is cancelled. Messages are acknowledged after the handler
// returns; handler errors are logged, not retried.
//
// The consumer name must be stable across restarts. Entries delivered to it
// but not acknowledged before a crash sit in its pending list; Subscribe
// drains that backlog first, then switches to new entries, so a crash between
// delivery and ack redelivers the message instead of losing it.
func (b *RedisBus) Subscribe(ctx context.Context, stream, group, consumer string, handler Handler) error {
	err := b.redis.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on stream %s: %w", group, stream, err)
	}

	slog.Info("bus subscription started", slog.String("stream", stream), slog.String("group", group), slog.String("consumer", consumer))

	// "0" reads this consumer's unacknowledged backlog, ">" new entries
	readID := "0"

	for {
		if ctx.Err() != nil {
			slog.Info("bus subscription stopped", slog.String("stream", stream), slog.String("group", group))
			return ctx.Err()
		}

		streams, err := b.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, readID},
			Count:    b.cfg.Bus.ReadBatch,
			Block:    b.cfg.Bus.ReadBlock,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				if readID == "0" {
					readID = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			slog.Error(
				"failed on redis.XReadGroup",
				slog.String("stream", stream),
				slog.String("group", group),
				slog.String("err", err.Error()),
			)
			continue
		}

		delivered := 0
		for _, s := range streams {
			delivered += len(s.Messages)
			for _, msg := range s.Messages {
				b.dispatch(ctx, stream, group, msg, handler)
			}
		}

		if readID == "0" && delivered == 0 {
			slog.Info("pending backlog drained", slog.String("stream", stream), slog.String("group", group), slog.String("consumer", consumer))
			readID = ">"
		}
	}
}

func (b *RedisBus) dispatch(ctx context.Context, stream, group string, msg redis.XMessage, handler Handler) {
	msgCtx := utils.CtxWithRqID(ctx, "")

	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		slog.Error(
			"message without payload field, dropping",
			slog.String("stream", stream),
			slog.String("msgID", msg.ID),
		)
	} else if err := handler(msgCtx, []byte(payload)); err != nil {
		slog.Error(
			"handler failed, dropping message",
			slog.String("stream", stream),
			slog.String("msgID", msg.ID),
			slog.String("err", err.Error()),
		)
	}

	if err := b.redis.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
		slog.Error(
			"failed on redis.XAck",
			slog.String("stream", stream),
			slog.String("msgID", msg.ID),
			slog.String("err", err.Error()),
		)
	}
}
