// internal/notify/redis.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the push service consumes.
const DefaultQueueName = "minigame_notifications"

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisQueue pushes notifications onto a Redis list for the push service.
type RedisQueue struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

func NewRedisQueue(rdb *redis.Client, queue string, logger *logrus.Logger) *RedisQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisQueue{rdb: rdb, queue: queue, logger: logger}
}

// Publish serializes n and appends it to the queue.
func (q *RedisQueue) Publish(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal Notification: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// NotifyUser implements Notifier.
func (q *RedisQueue) NotifyUser(ctx context.Context, uid uuid.UUID, title, body string, metadata map[string]string) {
	n := Notification{
		UserID:    uid,
		Title:     title,
		Body:      body,
		Metadata:  metadata,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := q.Publish(ctx, n); err != nil {
		q.logger.WithFields(logrus.Fields{
			"user_id": uid,
			"title":   title,
			"error":   err,
		}).Error("notification dropped")
	}
}

// Pop blocks up to timeout for the next queued notification. It returns nil when
// the queue stayed empty.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Notification, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	var n Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &n, nil
}
