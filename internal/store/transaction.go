package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// Tx is a gorm transaction carried by a context. Stores pick it up through FromContext so
// that writes of several stores land in the same transaction.
type Tx struct {
	db *gorm.DB
}

// Commit commits the transaction carried by ctx, if any, and returns a context without it.
func Commit(ctx context.Context) (context.Context, error) {
	return finish(ctx, "commit", (*gorm.DB).Commit)
}

// Rollback is Commit's counterpart. Rolling back a finished transaction is a no-op, so it
// is safe to defer right after NewTransactionContext.
func Rollback(ctx context.Context) (context.Context, error) {
	return finish(ctx, "rollback", (*gorm.DB).Rollback)
}

func FromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*Tx); ok && tx.db != nil {
		return tx.db
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	// nested calls join the outer transaction
	if _, ok := ctx.Value(txKey{}).(*Tx); ok {
		return ctx, nil
	}

	begun := db.Session(&gorm.Session{Context: ctx}).Begin()
	if begun.Error != nil {
		return ctx, Unavailable("begin transaction", begun.Error)
	}
	return context.WithValue(ctx, txKey{}, &Tx{db: begun}), nil
}

func finish(ctx context.Context, op string, fn func(*gorm.DB) *gorm.DB) (context.Context, error) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok {
		return ctx, nil
	}
	next := context.WithValue(ctx, txKey{}, nil)
	if tx.db == nil {
		return next, nil
	}

	err := fn(tx.db).Error
	tx.db = nil
	if err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		zap.S().Named("store").Errorw("transaction "+op+" failed", "error", err)
		return next, Unavailable(op+" transaction", err)
	}
	zap.S().Named("store").Debugf("transaction %s", op)
	return next, nil
}
