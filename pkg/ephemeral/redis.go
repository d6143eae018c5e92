package ephemeral

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/liscain-net/liscain/pkg/util"
)

const redisKeyPrefix = "liscain:adopt:"

// RedisStore keeps adoption blobs in redis so several controller
// processes can serve the same adopt/<token> pulls. Expiry is delegated
// to redis key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the redis instance at addr.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Put stores data under a fresh token.
func (s *RedisStore) Put(data string) (string, error) {
	token := uuid.NewString()
	err := s.client.Set(context.Background(), redisKeyPrefix+token, data, s.ttl).Err()
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the blob for token and refreshes its TTL.
func (s *RedisStore) Get(token string) (string, bool) {
	ctx := context.Background()
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if err != redis.Nil {
			util.WithComponent("ephemeral").Warnf("redis get failed: %v", err)
		}
		return "", false
	}
	if err := s.client.Expire(ctx, redisKeyPrefix+token, s.ttl).Err(); err != nil {
		util.WithComponent("ephemeral").Warnf("redis expire failed: %v", err)
	}
	return data, true
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
