// internal/database/session.go
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

const sessionColumns = `
	id, game_id, player0, player1, status,
	base_state, base_player, base_gameover,
	move_log, current_player, gameover,
	created_at, updated_at, nudged_at
`

func scanSession(row pgx.Row) (*models.GameSession, error) {
	var (
		s                              models.GameSession
		player1                        *uuid.UUID
		status                         string
		baseState, baseOver, log, over []byte
	)
	err := row.Scan(
		&s.ID, &s.GameID, &s.Players[0], &player1, &status,
		&baseState, &s.Base.CurrentPlayer, &baseOver,
		&log, &s.CurrentPlayer, &over,
		&s.CreatedAt, &s.UpdatedAt, &s.NudgedAt,
	)
	if err != nil {
		return nil, err
	}
	if player1 != nil {
		s.Players[1] = *player1
	}
	s.Status = models.SessionStatus(status)
	s.Base.State = json.RawMessage(baseState)
	if s.Base.Gameover, err = decodeOutcome(baseOver); err != nil {
		return nil, err
	}
	if s.Gameover, err = decodeOutcome(over); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(log, &s.MoveLog); err != nil {
		return nil, fmt.Errorf("decode move log: %w", err)
	}
	return &s, nil
}

func decodeOutcome(raw []byte) (*models.Outcome, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var o models.Outcome
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	return &o, nil
}

func encodeOutcome(o *models.Outcome) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func (t *pgTx) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1 FOR UPDATE`
	s, err := scanSession(t.tx.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

// FindWaitingSession locks only the row it returns. When nothing is waiting no row
// is locked, so concurrent joiners on an empty queue each open their own session.
func (t *pgTx) FindWaitingSession(ctx context.Context, gameID string, exclude uuid.UUID) (*models.GameSession, error) {
	q := `
		SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE game_id = $1 AND status = 'waiting' AND player1 IS NULL AND player0 <> $2
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE
	`
	s, err := scanSession(t.tx.QueryRow(ctx, q, gameID, exclude))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select waiting session: %w", err)
	}
	return s, nil
}

func (t *pgTx) PutSession(ctx context.Context, s *models.GameSession) error {
	baseOver, err := encodeOutcome(s.Base.Gameover)
	if err != nil {
		return err
	}
	over, err := encodeOutcome(s.Gameover)
	if err != nil {
		return err
	}
	log := s.MoveLog
	if log == nil {
		log = []models.MoveRecord{}
	}
	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode move log: %w", err)
	}
	var player1 *uuid.UUID
	if s.Players[1] != uuid.Nil {
		player1 = &s.Players[1]
	}
	baseState := []byte(s.Base.State)
	if len(baseState) == 0 {
		baseState = []byte("null")
	}

	q := `
		INSERT INTO game_sessions (
			id, game_id, player0, player1, status,
			base_state, base_player, base_gameover,
			move_log, move_count, current_player, gameover,
			created_at, updated_at, nudged_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			player1 = EXCLUDED.player1,
			status = EXCLUDED.status,
			base_state = EXCLUDED.base_state,
			base_player = EXCLUDED.base_player,
			base_gameover = EXCLUDED.base_gameover,
			move_log = EXCLUDED.move_log,
			move_count = EXCLUDED.move_count,
			current_player = EXCLUDED.current_player,
			gameover = EXCLUDED.gameover,
			updated_at = EXCLUDED.updated_at,
			nudged_at = EXCLUDED.nudged_at
	`
	_, err = t.tx.Exec(ctx, q,
		s.ID, s.GameID, s.Players[0], player1, string(s.Status),
		baseState, s.Base.CurrentPlayer, baseOver,
		logJSON, len(log), s.CurrentPlayer, over,
		s.CreatedAt, s.UpdatedAt, s.NudgedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionsWithLongLogs implements store.Store.
func (s *Store) SessionsWithLongLogs(ctx context.Context, threshold int) ([]uuid.UUID, error) {
	return s.queryIDs(ctx, `SELECT id FROM game_sessions WHERE move_count > $1 ORDER BY id`, threshold)
}

// IdleSessions implements store.Store.
func (s *Store) IdleSessions(ctx context.Context, updatedBefore time.Time) ([]uuid.UUID, error) {
	q := `
		SELECT id FROM game_sessions
		WHERE status = 'active' AND gameover IS NULL AND updated_at < $1
		ORDER BY id
	`
	return s.queryIDs(ctx, q, updatedBefore)
}

func (s *Store) queryIDs(ctx context.Context, q string, args ...any) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect ids: %w", err)
	}
	return ids, nil
}
