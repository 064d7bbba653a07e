// internal/database/db.go
package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

// SQLSTATEs that mean a concurrent transaction won and ours should be re-run.
const (
	sqlSerializationFailure = "40001"
	sqlDeadlockDetected     = "40P01"
	sqlUniqueViolation      = "23505"
)

// Store is the Postgres implementation of store.Store. Transactions run at
// REPEATABLE READ; rows read for update are locked, and a concurrent commit on any
// of them aborts ours with a serialization failure, which RunInTx retries.
type Store struct {
	pool     *pgxpool.Pool
	logger   *logrus.Logger
	attempts int
}

var _ store.Store = (*Store)(nil)

// Connect opens a pool against url and pings it.
func Connect(ctx context.Context, url string, maxConns int32, attempts int, logger *logrus.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if attempts <= 0 {
		attempts = store.DefaultAttempts
	}
	logger.WithFields(logrus.Fields{
		"host":     config.ConnConfig.Host,
		"database": config.ConnConfig.Database,
	}).Info("connected to database")
	return &Store{pool: pool, logger: logger, attempts: attempts}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool to other Postgres-backed collaborators.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunInTx implements store.Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
			return fn(ctx, &pgTx{tx: tx})
		})
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		s.logger.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Debug("transaction conflict, retrying")

		backoff := time.Duration(attempt*attempt)*5*time.Millisecond + rand.N(5*time.Millisecond)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return store.ErrConflict
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case sqlSerializationFailure, sqlDeadlockDetected, sqlUniqueViolation:
		return true
	}
	return false
}

// pgTx implements store.Tx on a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}
