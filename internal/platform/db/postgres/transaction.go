package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrReadOnlyTransaction は読み取り専用トランザクション内で書き込みを開始しようとした場合のエラーです。
var ErrReadOnlyTransaction = errors.New("postgres: read-write transaction requested inside read-only transaction")

type txContextKey struct{}

// txState はコンテキストに格納する実行中トランザクションです。
type txState struct {
	tx       pgx.Tx
	readOnly bool
}

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var (
	readOnlyOptions  = pgx.TxOptions{AccessMode: pgx.ReadOnly}
	readWriteOptions = pgx.TxOptions{AccessMode: pgx.ReadWrite, IsoLevel: pgx.ReadCommitted}
)

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// 実行中のトランザクションはコンテキスト経由でリポジトリに渡されます。
type TransactionManager struct {
	pool txStarter
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter) *TransactionManager {
	if pool == nil {
		return nil
	}
	return &TransactionManager{pool: pool}
}

// WithinReadOnly は読み取り専用トランザクションで fn を実行します。
// 実行中のトランザクションがあればそれを再利用します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	if _, ok := stateFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.run(ctx, readOnlyOptions, fn)
}

// WithinReadWrite は読み書きトランザクションで fn を実行します。
// 読み取り専用トランザクションの内側から呼ばれた場合は ErrReadOnlyTransaction を返します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	if state, ok := stateFromContext(ctx); ok {
		if state.readOnly {
			return ErrReadOnlyTransaction
		}
		return fn(ctx)
	}
	return m.run(ctx, readWriteOptions, fn)
}

func (m *TransactionManager) run(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) (err error) {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	// fn の panic を含め、コミットしていなければ必ずロールバックする
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "postgres rollback failed", "error", rbErr)
			if err != nil {
				err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(contextWithTx(ctx, txState{tx: tx, readOnly: opts.AccessMode == pgx.ReadOnly})); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	committed = true
	return nil
}

func contextWithTx(ctx context.Context, state txState) context.Context {
	return context.WithValue(ctx, txContextKey{}, state)
}

func stateFromContext(ctx context.Context) (txState, bool) {
	if ctx == nil {
		return txState{}, false
	}
	state, ok := ctx.Value(txContextKey{}).(txState)
	return state, ok
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if state, ok := stateFromContext(ctx); ok {
		return state.tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
