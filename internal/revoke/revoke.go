// Package revoke 让密码重置 token 只能使用一次。
package revoke

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard 记录已使用的 token id。Consume 返回 false 表示该 token 已被使用过。
type Guard interface {
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Nop 接受所有 token，重置 token 在过期前可重复使用。
type Nop struct{}

func (Nop) Consume(context.Context, string, time.Duration) (bool, error) { return true, nil }

const keyPrefix = "reset:used:"

type RedisGuard struct {
	rdb *redis.Client
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

// Consume 将 id 标记为已使用，保留 ttl，只需比 token 活得久。
func (g *RedisGuard) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := g.rdb.SetNX(ctx, keyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// NewRedisClient 连接 Redis 并 ping，地址错误时在启动阶段失败。
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}
