package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockManager(t *testing.T) (pgxmock.PgxPoolIface, *TransactionManager) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewTransactionManager(mock)
}

func TestTransactionManager_ReadWriteCommit(t *testing.T) {
	t.Parallel()

	mock, tm := newMockManager(t)

	mock.ExpectBeginTx(readWriteOptions)
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		state, ok := stateFromContext(ctx)
		if !ok {
			t.Fatalf("transaction not injected into context")
		}
		if state.readOnly {
			t.Fatalf("expected read-write transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinReadWrite returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_ReadOnlyRollbackOnError(t *testing.T) {
	t.Parallel()

	mock, tm := newMockManager(t)

	mock.ExpectBeginTx(readOnlyOptions)
	mock.ExpectRollback()

	expectedErr := errors.New("usecase error")
	err := tm.WithinReadOnly(context.Background(), func(ctx context.Context) error {
		if _, ok := stateFromContext(ctx); !ok {
			t.Fatalf("transaction not injected into context")
		}
		return expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_RollbackOnPanic(t *testing.T) {
	t.Parallel()

	mock, tm := newMockManager(t)

	mock.ExpectBeginTx(readWriteOptions)
	mock.ExpectRollback()

	func() {
		defer func() {
			if r := recover(); r != "handler panic" {
				t.Fatalf("expected panic to propagate, got %v", r)
			}
		}()
		_ = tm.WithinReadWrite(context.Background(), func(context.Context) error {
			panic("handler panic")
		})
	}()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_NestedReuse(t *testing.T) {
	t.Parallel()

	mock, tm := newMockManager(t)

	mock.ExpectBeginTx(readWriteOptions)
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		outer := QueryerFromContext(ctx, nil)
		return tm.WithinReadOnly(ctx, func(inner context.Context) error {
			if QueryerFromContext(inner, nil) != outer {
				t.Fatalf("nested transaction lost context")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested transaction returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_ReadWriteInsideReadOnly(t *testing.T) {
	t.Parallel()

	mock, tm := newMockManager(t)

	mock.ExpectBeginTx(readOnlyOptions)
	mock.ExpectRollback()

	err := tm.WithinReadOnly(context.Background(), func(ctx context.Context) error {
		return tm.WithinReadWrite(ctx, func(context.Context) error {
			t.Fatalf("read-write function must not run")
			return nil
		})
	})
	if !errors.Is(err, ErrReadOnlyTransaction) {
		t.Fatalf("expected ErrReadOnlyTransaction, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryerFromContext_Fallback(t *testing.T) {
	t.Parallel()

	mock, _ := newMockManager(t)

	if got := QueryerFromContext(context.Background(), mock); got != mock {
		t.Fatalf("expected fallback queryer")
	}
}

func TestTransactionManager_Nil(t *testing.T) {
	t.Parallel()

	var tm *TransactionManager
	called := false
	if err := tm.WithinReadWrite(context.Background(), func(context.Context) error {
		called = true
		return nil
	}); err != nil || !called {
		t.Fatalf("expected nil manager to run fn directly, err=%v called=%v", err, called)
	}
}
