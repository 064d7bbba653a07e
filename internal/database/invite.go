// internal/database/invite.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/models"
)

func (t *pgTx) GetInvite(ctx context.Context, id uuid.UUID) (*models.GameInvite, error) {
	q := `
		SELECT id, from_user, to_user, game_id, status, accepted_by,
		       game_session_id, match_id, created_at, updated_at, started_at, reminded_at
		FROM game_invites
		WHERE id = $1
		FOR UPDATE
	`
	var (
		inv      models.GameInvite
		status   string
		accepted []byte
	)
	err := t.tx.QueryRow(ctx, q, id).Scan(
		&inv.ID, &inv.From, &inv.To, &inv.GameID, &status, &accepted,
		&inv.GameSessionID, &inv.MatchID, &inv.CreatedAt, &inv.UpdatedAt, &inv.StartedAt, &inv.RemindedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select invite: %w", err)
	}
	inv.Status = models.InviteStatus(status)
	if err := json.Unmarshal(accepted, &inv.AcceptedBy); err != nil {
		return nil, fmt.Errorf("decode accepted_by: %w", err)
	}
	return &inv, nil
}

func (t *pgTx) PutInvite(ctx context.Context, inv *models.GameInvite) error {
	accepted := inv.AcceptedBy
	if accepted == nil {
		accepted = []uuid.UUID{}
	}
	acceptedJSON, err := json.Marshal(accepted)
	if err != nil {
		return fmt.Errorf("encode accepted_by: %w", err)
	}
	q := `
		INSERT INTO game_invites (
			id, from_user, to_user, game_id, status, accepted_by,
			game_session_id, match_id, created_at, updated_at, started_at, reminded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			accepted_by = EXCLUDED.accepted_by,
			game_session_id = EXCLUDED.game_session_id,
			match_id = EXCLUDED.match_id,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			reminded_at = EXCLUDED.reminded_at
	`
	_, err = t.tx.Exec(ctx, q,
		inv.ID, inv.From, inv.To, inv.GameID, string(inv.Status), acceptedJSON,
		inv.GameSessionID, inv.MatchID, inv.CreatedAt, inv.UpdatedAt, inv.StartedAt, inv.RemindedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert invite: %w", err)
	}
	return nil
}

// PendingInvitesBefore implements store.Store.
func (s *Store) PendingInvitesBefore(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	q := `SELECT id FROM game_invites WHERE status = 'pending' AND created_at < $1 ORDER BY id`
	return s.queryIDs(ctx, q, createdBefore)
}

// InvitesWithStatus implements store.Store.
func (s *Store) InvitesWithStatus(ctx context.Context, status models.InviteStatus) ([]uuid.UUID, error) {
	return s.queryIDs(ctx, `SELECT id FROM game_invites WHERE status = $1 ORDER BY id`, string(status))
}
