// internal/session/session.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/notify"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

// Service implements matchmaking and move application over the document store.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	logger   *logrus.Logger

	// OnGameOver is called after a move that ended the game has been committed.
	OnGameOver func(ctx context.Context, s *models.GameSession)

	Now func() time.Time
}

func NewService(st store.Store, notifier notify.Notifier, logger *logrus.Logger) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		logger:   logger,
		Now:      time.Now,
	}
}

// JoinResult tells the caller which session it landed in. OpponentID is nil while
// the caller is waiting for someone to pair with.
type JoinResult struct {
	SessionID  uuid.UUID  `json:"sessionId"`
	OpponentID *uuid.UUID `json:"opponentId"`
}

// Join pairs uid with the oldest session of gameID still waiting for a second
// player, or opens a new waiting session. Two callers racing on an empty queue may
// both end up waiting; an open seat is never filled twice.
func (s *Service) Join(ctx context.Context, gameID string, uid uuid.UUID) (JoinResult, error) {
	def, err := game.Lookup(gameID)
	if err != nil {
		return JoinResult{}, err
	}
	base, err := def.Initial()
	if err != nil {
		return JoinResult{}, err
	}

	var res JoinResult
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		waiting, err := tx.FindWaitingSession(ctx, gameID, uid)
		if err != nil {
			return fmt.Errorf("find waiting session: %w", err)
		}
		if waiting != nil {
			waiting.Players[1] = uid
			waiting.Status = models.SessionActive
			waiting.UpdatedAt = now
			opponent := waiting.Players[0]
			res = JoinResult{SessionID: waiting.ID, OpponentID: &opponent}
			return tx.PutSession(ctx, waiting)
		}

		sess := models.NewWaitingSession(uuid.New(), gameID, uid, base, now)
		res = JoinResult{SessionID: sess.ID}
		return tx.PutSession(ctx, sess)
	})
	if err != nil {
		return JoinResult{}, storeErr("join", err)
	}

	fields := logrus.Fields{"session_id": res.SessionID, "user_id": uid, "game_id": gameID}
	if res.OpponentID != nil {
		s.logger.WithFields(fields).Info("paired waiting session")
		s.notifier.NotifyUser(ctx, *res.OpponentID, "Opponent found", gameID, map[string]string{
			"sessionId": res.SessionID.String(),
		})
	} else {
		s.logger.WithFields(fields).Info("opened waiting session")
	}
	return res, nil
}

// MakeMove applies one move for uid. The log is replayed to find whose turn it is,
// so the move is checked against the authoritative state rather than the caches.
func (s *Service) MakeMove(ctx context.Context, sessionID, uid uuid.UUID, move string, args []json.RawMessage) (*models.GameSession, error) {
	if args == nil {
		args = []json.RawMessage{}
	}

	var out *models.GameSession
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		seat, ok := sess.Seat(uid)
		if !ok {
			return apperr.ErrNotParticipant
		}
		if sess.Status == models.SessionArchived {
			return apperr.ErrSessionArchived
		}
		def, err := game.Lookup(sess.GameID)
		if err != nil {
			return err
		}

		cur, err := def.Replay(sess.Base, sess.MoveLog, game.Tolerant)
		if err != nil {
			return fmt.Errorf("replay session %s: %w", sess.ID, err)
		}
		if seat != cur.CurrentPlayer {
			return apperr.ErrNotYourTurn
		}
		if cur.Gameover != nil {
			return apperr.ErrGameAlreadyFinished
		}

		now := s.Now()
		rec := models.MoveRecord{Action: move, Player: seat, Args: args, At: now.UTC()}
		next, err := def.Apply(cur.Snapshot(), rec)
		if err != nil {
			return err
		}

		log := make([]models.MoveRecord, len(sess.MoveLog), len(sess.MoveLog)+1)
		copy(log, sess.MoveLog)
		sess.Record(sess.Base, append(log, rec), next.CurrentPlayer, next.Gameover, now)
		out = sess
		return tx.PutSession(ctx, sess)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Wrap(apperr.CodeNotYourTurn, "another move landed first", err)
	}
	if err != nil {
		return nil, storeErr("make move", err)
	}

	fields := logrus.Fields{"session_id": out.ID, "user_id": uid, "move": move}
	if out.Gameover != nil {
		s.logger.WithFields(fields).WithField("gameover", *out.Gameover).Info("game over")
		if s.OnGameOver != nil {
			s.OnGameOver(ctx, out)
		}
		return out, nil
	}
	s.logger.WithFields(fields).Debug("move applied")
	if next := out.PlayerAt(out.CurrentPlayer); next != uuid.Nil && next != uid {
		s.notifier.NotifyUser(ctx, next, "Your turn", out.GameID, map[string]string{
			"sessionId": out.ID.String(),
		})
	}
	return out, nil
}

// Get returns a session to one of its participants.
func (s *Service) Get(ctx context.Context, sessionID, uid uuid.UUID) (*models.GameSession, error) {
	var out *models.GameSession
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, ok := sess.Seat(uid); !ok {
			return apperr.ErrNotParticipant
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return out, nil
}

// Leave deletes the caller's own session while nobody has joined it yet. Clients
// call it when their matchmaking wait times out.
func (s *Service) Leave(ctx context.Context, sessionID, uid uuid.UUID) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, ok := sess.Seat(uid); !ok {
			return apperr.ErrNotParticipant
		}
		if !sess.IsWaiting() {
			return apperr.ErrSessionNotWaiting
		}
		return tx.DeleteSession(ctx, sessionID)
	})
	if err != nil {
		return storeErr("leave session", err)
	}
	s.logger.WithFields(logrus.Fields{"session_id": sessionID, "user_id": uid}).Info("left waiting session")
	return nil
}

// storeErr passes domain errors through and wraps everything else.
func storeErr(op string, err error) error {
	if apperr.CodeOf(err) != apperr.CodeUnknown {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
