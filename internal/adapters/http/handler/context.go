package handler

import (
	"context"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

type actorKey struct{}

type tokenKey struct{}

func withActor(ctx context.Context, actor employee.Actor, token string) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, actor)
	return context.WithValue(ctx, tokenKey{}, token)
}

// ActorFromContext は認証済みの操作者を返します。
func ActorFromContext(ctx context.Context) (employee.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(employee.Actor)
	return a, ok
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}
