// internal/database/quota.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/minigames/internal/models"
)

func (t *pgTx) GetQuota(ctx context.Context, uid uuid.UUID) (*models.UserQuota, error) {
	q := `
		SELECT last_invite_at, daily_play_count, last_game_played_at
		FROM user_quotas
		WHERE user_id = $1
		FOR UPDATE
	`
	quota := &models.UserQuota{UserID: uid}
	err := t.tx.QueryRow(ctx, q, uid).Scan(&quota.LastInviteAt, &quota.DailyPlayCount, &quota.LastGamePlayedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return quota, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select quota: %w", err)
	}
	return quota, nil
}

// PutQuota upserts the row. Two first-time writers racing on the same user collide
// on the primary key (or on a row invisible to the snapshot) and one of them retries.
func (t *pgTx) PutQuota(ctx context.Context, quota *models.UserQuota) error {
	q := `
		INSERT INTO user_quotas (user_id, last_invite_at, daily_play_count, last_game_played_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			last_invite_at = EXCLUDED.last_invite_at,
			daily_play_count = EXCLUDED.daily_play_count,
			last_game_played_at = EXCLUDED.last_game_played_at
	`
	if _, err := t.tx.Exec(ctx, q, quota.UserID, quota.LastInviteAt, quota.DailyPlayCount, quota.LastGamePlayedAt); err != nil {
		return fmt.Errorf("upsert quota: %w", err)
	}
	return nil
}

func (t *pgTx) GetProfile(ctx context.Context, uid uuid.UUID) (models.UserProfile, error) {
	p := models.UserProfile{ID: uid, TimeZone: "UTC"}
	err := t.tx.QueryRow(ctx, `SELECT is_premium, time_zone FROM user_profiles WHERE id = $1`, uid).
		Scan(&p.Premium, &p.TimeZone)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

// PutProfile upserts a profile row. The engine never writes profiles during play;
// this is for seeding and for the social side's sync.
func (s *Store) PutProfile(ctx context.Context, p models.UserProfile) error {
	q := `
		INSERT INTO user_profiles (id, is_premium, time_zone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET is_premium = EXCLUDED.is_premium, time_zone = EXCLUDED.time_zone
	`
	if _, err := s.pool.Exec(ctx, q, p.ID, p.Premium, p.TimeZone); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
