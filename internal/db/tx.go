package db

import (
	"context"
	"fmt"
	"sync"
)

// TxRunner runs fn inside one transaction. fn must use the ctx it is given.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxManager runs callbacks inside a Postgres transaction carried on the context.
// Nested calls join the outer transaction.
type TxManager struct {
	pool Pool
}

func NewTxManager(pool Pool) *TxManager {
	if pool == nil {
		panic("db: pool cannot be nil")
	}
	return &TxManager{pool: pool}
}

// RunInTx commits when fn returns nil and rolls back on error or panic.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("db: rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit transaction: %w", err)
	}
	return nil
}

type localTxKey struct{}

type localTx struct {
	mu   sync.Mutex
	undo []func()
}

// LocalTxRunner gives in-memory repositories transaction semantics. Transactions
// are serialized and every mutation registers an undo step with OnRollback.
type LocalTxRunner struct {
	mu sync.Mutex
}

func NewLocalTxRunner() *LocalTxRunner {
	return &LocalTxRunner{}
}

func (r *LocalTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &localTx{}
	defer func() {
		if rec := recover(); rec != nil {
			tx.rollback()
			panic(rec)
		}
	}()

	if err := fn(context.WithValue(ctx, localTxKey{}, tx)); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (tx *localTx) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// OnRollback registers undo to run if the in-memory transaction on ctx rolls back.
// Outside a transaction it does nothing.
func OnRollback(ctx context.Context, undo func()) {
	tx, ok := ctx.Value(localTxKey{}).(*localTx)
	if !ok {
		return
	}
	tx.mu.Lock()
	tx.undo = append(tx.undo, undo)
	tx.mu.Unlock()
}
