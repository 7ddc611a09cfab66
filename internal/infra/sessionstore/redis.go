package sessionstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKey = "userToken"
	infoKey  = "userInfo"
)

// Redis keeps the session as two keys under a prefix. Writes go through
// MULTI/EXEC so both keys change together.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedis creates a Redis-backed persister. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) keys() (string, string) {
	return r.prefix + tokenKey, r.prefix + infoKey
}

// Load reads both keys in one round trip. Missing keys read as empty.
func (r *Redis) Load(ctx context.Context) (string, []byte, error) {
	tk, ik := r.keys()
	vals, err := r.client.MGet(ctx, tk, ik).Result()
	if err != nil {
		return "", nil, fmt.Errorf("load session: %w", err)
	}

	token, _ := vals[0].(string)
	var info []byte
	if s, ok := vals[1].(string); ok {
		info = []byte(s)
	}
	return token, info, nil
}

// Save writes both keys in a transaction.
func (r *Redis) Save(ctx context.Context, token string, userInfo []byte) error {
	tk, ik := r.keys()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tk, token, 0)
		pipe.Set(ctx, ik, userInfo, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes both keys with a single DEL.
func (r *Redis) Delete(ctx context.Context) error {
	tk, ik := r.keys()
	if err := r.client.Del(ctx, tk, ik).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
