// internal/session/lifecycle.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

// CreateForInvite returns the session keyed by id, creating it with both players
// seated if it does not exist yet. It runs inside the caller's transaction.
func CreateForInvite(ctx context.Context, tx store.Tx, id uuid.UUID, gameID string, from, to uuid.UUID, now time.Time) (*models.GameSession, error) {
	existing, err := tx.GetSession(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}

	def, err := game.Lookup(gameID)
	if err != nil {
		return nil, err
	}
	base, err := def.Initial()
	if err != nil {
		return nil, err
	}
	sess := models.NewWaitingSession(id, gameID, from, base, now)
	sess.Players[1] = to
	sess.Status = models.SessionActive
	if err := tx.PutSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Archive marks a session archived so no further moves are accepted. Missing
// sessions are ignored.
func Archive(ctx context.Context, tx store.Tx, id uuid.UUID, now time.Time) error {
	sess, err := tx.GetSession(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status == models.SessionArchived {
		return nil
	}
	sess.Status = models.SessionArchived
	sess.UpdatedAt = now
	return tx.PutSession(ctx, sess)
}

// NudgeIdle reminds the player to move in active sessions untouched for longer than
// idleAfter. Each session is nudged once per period of inactivity.
func (s *Service) NudgeIdle(ctx context.Context, idleAfter time.Duration) (int, error) {
	now := s.Now()
	cutoff := now.Add(-idleAfter)
	ids, err := s.store.IdleSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}

	nudged := 0
	for _, id := range ids {
		var target *models.GameSession
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			target = nil
			sess, err := tx.GetSession(ctx, id)
			if err != nil {
				return err
			}
			if sess.Status != models.SessionActive || sess.Gameover != nil || !sess.UpdatedAt.Before(cutoff) {
				return nil
			}
			if sess.NudgedAt != nil && !sess.NudgedAt.Before(sess.UpdatedAt) {
				return nil
			}
			sess.NudgedAt = &now
			target = sess
			return tx.PutSession(ctx, sess)
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{"session_id": id, "error": err}).Error("idle nudge failed")
			continue
		}
		if target == nil {
			continue
		}
		if uid := target.PlayerAt(target.CurrentPlayer); uid != uuid.Nil {
			s.notifier.NotifyUser(ctx, uid, "Your opponent is waiting", target.GameID, map[string]string{
				"sessionId": target.ID.String(),
			})
			nudged++
		}
	}
	return nudged, nil
}
