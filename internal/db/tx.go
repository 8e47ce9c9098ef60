package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxFunc is a unit of work. Every statement it issues must go through q.
type TxFunc func(ctx context.Context, q Querier) error

// Transactor runs a unit of work atomically: all of its writes become
// visible together or none of them do.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

type beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type TxOptions struct {
	MaxAttempts     uint
	InitialInterval time.Duration
}

type pgxTransactor struct {
	db   beginner
	opts TxOptions
}

func NewTransactor(db beginner, opts TxOptions) Transactor {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 50 * time.Millisecond
	}
	return &pgxTransactor{db: db, opts: opts}
}

// WithinTx commits when fn returns nil and rolls back when it returns an
// error or panics. Serialization failures and deadlocks restart fn in a
// fresh transaction up to MaxAttempts times; any other error is returned as is.
func (t *pgxTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.opts.InitialInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := t.run(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if IsRetryable(err) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("db: transaction conflict, retrying")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(t.opts.MaxAttempts))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (t *pgxTransactor) run(ctx context.Context, fn TxFunc) (err error) {
	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("db: failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			rollback(ctx, tx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("db: failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(ctx, tx)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Error().Err(err).Msg("db: failed to rollback transaction")
	}
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
