// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/minigames/internal/models"
)

// Matcher implements invite.Matcher over the likes and matches tables.
type Matcher struct {
	pool *pgxpool.Pool
}

func NewMatcher(pool *pgxpool.Pool) *Matcher {
	return &Matcher{pool: pool}
}

// Like records that from likes to. Repeated likes are no-ops.
func (m *Matcher) Like(ctx context.Context, from, to uuid.UUID) error {
	q := `INSERT INTO likes (from_user, to_user) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := m.pool.Exec(ctx, q, from, to); err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// CreateMatchIfMutualLike returns the pair's match id, creating the match when both
// users like each other. It returns nil when the like is not mutual.
func (m *Matcher) CreateMatchIfMutualLike(ctx context.Context, a, b uuid.UUID) (*uuid.UUID, error) {
	userA, userB := orderedPair(a, b)
	var id *uuid.UUID
	err := pgx.BeginTxFunc(ctx, m.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var mutual int
		q := `
			SELECT count(*) FROM likes
			WHERE (from_user = $1 AND to_user = $2) OR (from_user = $2 AND to_user = $1)
		`
		if err := tx.QueryRow(ctx, q, a, b).Scan(&mutual); err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		if mutual < 2 {
			return nil
		}

		var matchID uuid.UUID
		upsert := `
			INSERT INTO matches (id, user_a, user_b)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_a, user_b) DO UPDATE SET user_a = EXCLUDED.user_a
			RETURNING id
		`
		if err := tx.QueryRow(ctx, upsert, uuid.New(), userA, userB).Scan(&matchID); err != nil {
			return fmt.Errorf("upsert match: %w", err)
		}
		id = &matchID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

// GetMatch returns the match between a and b, or nil.
func (m *Matcher) GetMatch(ctx context.Context, a, b uuid.UUID) (*models.Match, error) {
	userA, userB := orderedPair(a, b)
	rows, err := m.pool.Query(ctx, `SELECT id, user_a, user_b, created_at FROM matches WHERE user_a = $1 AND user_b = $2`, userA, userB)
	if err != nil {
		return nil, err
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Match, error) {
		var mt models.Match
		err := row.Scan(&mt.ID, &mt.UserA, &mt.UserB, &mt.CreatedAt)
		return mt, err
	})
	if err != nil {
		return nil, fmt.Errorf("select match: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// orderedPair sorts two ids so that the unique (user_a, user_b) key is symmetric.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
