package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/ascend/internal/domain/badges"
	"github.com/okian/ascend/internal/domain/model"
	"github.com/okian/ascend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// Notifier delivers one unlock notice to an outside party.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n model.UnlockNotice) error
}

// LogNotifier writes each notice as a structured log line.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier returns a notifier that logs through l.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

// Name implements Notifier.
func (n *LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, notice model.UnlockNotice) error {
	fields := []logger.Field{
		logger.String("installation_id", notice.InstallationID),
		logger.Int("unlocked_level", notice.Level),
		logger.Time("unlocked_at", notice.UnlockedAt),
	}
	if def, ok := badges.ForLevel(notice.Level); ok {
		fields = append(fields, logger.String("badge", def.Name), logger.Int("points", def.Points))
	}
	n.logger.Info(ctx, "badge unlocked", fields...)
	return nil
}

// Publisher is the subset of the redis client used to publish notices.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// RedisNotifier publishes each notice as JSON on a redis channel.
type RedisNotifier struct {
	client  Publisher
	channel string
}

// NewRedisNotifier returns a notifier publishing on channel.
func NewRedisNotifier(client Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Name implements Notifier.
func (n *RedisNotifier) Name() string { return "redis" }

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, notice model.UnlockNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", n.channel, err)
	}
	return nil
}
