package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "auth:login:attempts:"

// LoginLimiter はログイン失敗回数を Redis のカウンタで管理します。
// 最初の失敗から window の間に max 回失敗すると、カウンタが失効するまでブロックします。
type LoginLimiter struct {
	rdb    goredis.Cmdable
	max    int64
	window time.Duration
}

// NewLoginLimiter は LoginLimiter を生成します。
func NewLoginLimiter(rdb goredis.Cmdable, max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, max: int64(max), window: window}
}

// Blocked は key が試行上限に達しているかを返します。
func (l *LoginLimiter) Blocked(ctx context.Context, key string) (bool, error) {
	cnt, err := l.rdb.Get(ctx, loginAttemptsPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: get attempts: %w", err)
	}
	return cnt >= l.max, nil
}

// RegisterFailure は失敗回数を加算します。
func (l *LoginLimiter) RegisterFailure(ctx context.Context, key string) error {
	k := loginAttemptsPrefix + key
	val, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis: incr attempts: %w", err)
	}
	if val == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("redis: expire attempts: %w", err)
		}
	}
	return nil
}

// Reset は失敗回数を消去します。
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, loginAttemptsPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: reset attempts: %w", err)
	}
	return nil
}
