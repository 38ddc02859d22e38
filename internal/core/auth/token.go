package auth

import (
	"context"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

// Subject はトークンに埋め込む社員情報です。
type Subject struct {
	EmployeeID int64
	Email      string
	Name       string
	Role       employee.Role
}

// Token は発行済みのアクセストークンです。ID は失効管理に使う jti です。
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims は検証済みトークンから取り出した内容です。
type Claims struct {
	Subject
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer はアクセストークンを発行します。
type TokenIssuer interface {
	Issue(subject Subject) (Token, error)
}

// TokenVerifier はアクセストークンの署名と有効期限を検証します。
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// AttemptLimiter はログイン失敗回数を key ごとに数えます。
type AttemptLimiter interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RegisterFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// TokenRevoker はログアウト済みトークンを until まで記録します。
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type noopLimiter struct{}

func (noopLimiter) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noopLimiter) RegisterFailure(context.Context, string) error { return nil }
func (noopLimiter) Reset(context.Context, string) error           { return nil }

type noopRevoker struct{}

func (noopRevoker) Revoke(context.Context, string, time.Time) error { return nil }
func (noopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
