package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxFunc - функция, выполняемая в транзакции
type TxFunc func(tx pgx.Tx) error

// TxOption настраивает параметры транзакции
type TxOption func(*pgx.TxOptions)

// ReadOnly открывает транзакцию только для чтения
func ReadOnly() TxOption {
	return func(o *pgx.TxOptions) { o.AccessMode = pgx.ReadOnly }
}

// Isolation задаёт уровень изоляции
func Isolation(level pgx.TxIsoLevel) TxOption {
	return func(o *pgx.TxOptions) { o.IsoLevel = level }
}

// WithTransaction выполняет fn в транзакции: ошибка или паника - откат, иначе commit.
// Ошибка fn возвращается как есть (errors.Is работает), ошибка отката добавляется к ней.
func WithTransaction(ctx context.Context, db DB, fn TxFunc, opts ...TxOption) (err error) {
	var txOpts pgx.TxOptions
	for _, opt := range opts {
		opt(&txOpts)
	}

	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // best effort on panic
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
