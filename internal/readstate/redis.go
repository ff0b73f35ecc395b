package readstate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per user, scored by the time of marking.
type RedisStore struct {
	client    *redis.Client
	namespace string
	cap       int
	now       func() time.Time
}

// NewRedisClient parses a redis:// URL and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, namespace string, capacity int) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		cap:       normalizeCap(capacity),
		now:       time.Now,
	}
}

func (s *RedisStore) key(userID uuid.UUID) string {
	if s.namespace == "" {
		return "readstate:" + userID.String()
	}
	return s.namespace + ":readstate:" + userID.String()
}

func (s *RedisStore) MarkRead(ctx context.Context, userID uuid.UUID, notificationID string) error {
	return s.MarkAllRead(ctx, userID, []string{notificationID})
}

// MarkAllRead adds the ids and trims the set to the cap in one transaction.
// Later ids in the slice count as more recent.
func (s *RedisStore) MarkAllRead(ctx context.Context, userID uuid.UUID, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	key := s.key(userID)
	base := float64(s.now().UnixMilli())

	members := make([]redis.Z, 0, len(notificationIDs))
	for i, id := range notificationIDs {
		members = append(members, redis.Z{Score: base + float64(i)/float64(len(notificationIDs)), Member: id})
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, members...)
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.cap-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *RedisStore) ReadSet(ctx context.Context, userID uuid.UUID, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*redis.FloatCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.ZScore(ctx, s.key(userID), id)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read notification state: %w", err)
	}

	for i, id := range ids {
		_, err := cmds[i].Result()
		switch {
		case err == nil:
			out[id] = true
		case err == redis.Nil:
			out[id] = false
		default:
			return nil, fmt.Errorf("failed to read notification state: %w", err)
		}
	}
	return out, nil
}
