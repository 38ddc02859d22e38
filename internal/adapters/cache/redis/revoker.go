package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const tokenBlacklistPrefix = "auth:token:blacklist:"

// TokenBlacklist はログアウト済みトークンの jti を有効期限まで保持します。
type TokenBlacklist struct {
	rdb goredis.Cmdable
	now func() time.Time
}

// NewTokenBlacklist は TokenBlacklist を生成します。
func NewTokenBlacklist(rdb goredis.Cmdable) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb, now: time.Now}
}

// Revoke は tokenID を until まで失効させます。期限切れのトークンは記録しません。
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("redis: token id is required")
	}
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, tokenBlacklistPrefix+tokenID, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token: %w", err)
	}
	return nil
}

// IsRevoked は tokenID が失効済みかを返します。
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.rdb.Exists(ctx, tokenBlacklistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check token: %w", err)
	}
	return n > 0, nil
}
