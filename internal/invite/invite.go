// internal/invite/invite.go
package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/notify"
	"github.com/jason-s-yu/minigames/internal/quota"
	"github.com/jason-s-yu/minigames/internal/session"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

// Matcher is the social side's match bookkeeping. Implementations must be
// idempotent per unordered pair.
type Matcher interface {
	CreateMatchIfMutualLike(ctx context.Context, a, b uuid.UUID) (*uuid.UUID, error)
}

// Service runs the invite state machine:
//
//	pending -> ready -> active -> finished
//	pending | ready -> cancelled
type Service struct {
	store    store.Store
	gate     *quota.Gate
	matcher  Matcher
	notifier notify.Notifier
	logger   *logrus.Logger

	Now func() time.Time
}

func NewService(st store.Store, gate *quota.Gate, matcher Matcher, notifier notify.Notifier, logger *logrus.Logger) *Service {
	return &Service{
		store:    st,
		gate:     gate,
		matcher:  matcher,
		notifier: notifier,
		logger:   logger,
		Now:      time.Now,
	}
}

// Send creates a pending invite from one user to another.
func (s *Service) Send(ctx context.Context, from, to uuid.UUID, gameID string) (uuid.UUID, error) {
	if from == uuid.Nil || to == uuid.Nil {
		return uuid.Nil, apperr.New(apperr.CodeInvalidArgument, "both users are required")
	}
	if from == to {
		return uuid.Nil, apperr.ErrSelfInvite
	}
	if _, err := game.Lookup(gameID); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		if err := s.gate.ReserveInvite(ctx, tx, from, now); err != nil {
			return err
		}
		return tx.PutInvite(ctx, &models.GameInvite{
			ID:         id,
			From:       from,
			To:         to,
			GameID:     gameID,
			Status:     models.InvitePending,
			AcceptedBy: []uuid.UUID{from},
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		return uuid.Nil, txErr("send invite", err)
	}

	s.logger.WithFields(logrus.Fields{"invite_id": id, "user_id": from, "to": to, "game_id": gameID}).Info("invite sent")
	s.notifier.NotifyUser(ctx, to, "New game invite", gameID, map[string]string{"inviteId": id.String()})
	return id, nil
}

// Accept records uid's acceptance. Once both participants have accepted, the
// invite's session is created (keyed by the invite id), the pair is offered to the
// matcher and the game is started. Repeated or concurrent accepts converge on the
// same session and match.
func (s *Service) Accept(ctx context.Context, inviteID, uid uuid.UUID) (*uuid.UUID, error) {
	var inv *models.GameInvite
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if !cur.IsParticipant(uid) {
			return apperr.ErrNotParticipant
		}
		if cur.Status == models.InviteCancelled {
			return apperr.ErrInviteCancelled
		}
		inv = cur

		changed := false
		if !cur.HasAccepted(uid) {
			cur.AcceptedBy = append(cur.AcceptedBy, uid)
			changed = true
		}
		if cur.Status == models.InvitePending && cur.BothAccepted() {
			now := s.Now()
			sess, err := session.CreateForInvite(ctx, tx, cur.ID, cur.GameID, cur.From, cur.To, now)
			if err != nil {
				return fmt.Errorf("create invite session: %w", err)
			}
			cur.GameSessionID = &sess.ID
			cur.Status = models.InviteReady
			changed = true
		}
		if !changed {
			return nil
		}
		cur.UpdatedAt = s.Now()
		return tx.PutInvite(ctx, cur)
	})
	if err != nil {
		return nil, txErr("accept invite", err)
	}

	log := s.logger.WithFields(logrus.Fields{"invite_id": inviteID, "user_id": uid, "status": inv.Status})
	if inv.Status == models.InvitePending {
		log.Info("invite accepted, waiting for the other side")
		return nil, nil
	}

	matchID := inv.MatchID
	if matchID == nil {
		matchID = s.recordMatch(ctx, inv)
	}
	if inv.Status == models.InviteReady {
		if err := s.Start(ctx, inviteID); err != nil {
			log.WithField("error", err).Error("auto-start failed, left for the start sweep")
		}
	}
	log.Info("invite accepted")
	return matchID, nil
}

// recordMatch asks the matcher for the pair's match and stores the id on the invite.
// Matcher failures do not undo the accept; they are logged.
func (s *Service) recordMatch(ctx context.Context, inv *models.GameInvite) *uuid.UUID {
	log := s.logger.WithFields(logrus.Fields{"invite_id": inv.ID})
	matchID, err := s.matcher.CreateMatchIfMutualLike(ctx, inv.From, inv.To)
	if err != nil {
		log.WithField("error", err).Error("create match failed")
		return nil
	}
	if matchID == nil {
		return nil
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetInvite(ctx, inv.ID)
		if err != nil {
			return err
		}
		if cur.MatchID != nil {
			return nil
		}
		cur.MatchID = matchID
		return tx.PutInvite(ctx, cur)
	})
	if err != nil {
		log.WithField("error", err).Error("store match id failed")
	}
	return matchID
}

// Start moves a ready invite to active and tells both players. Invites in any
// other state are left alone.
func (s *Service) Start(ctx context.Context, inviteID uuid.UUID) error {
	_, err := s.start(ctx, inviteID)
	return err
}

// start reports whether this call moved the invite from ready to active.
func (s *Service) start(ctx context.Context, inviteID uuid.UUID) (bool, error) {
	var started *models.GameInvite
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		started = nil
		inv, err := tx.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if inv.Status != models.InviteReady {
			return nil
		}
		now := s.Now()
		inv.Status = models.InviteActive
		inv.StartedAt = &now
		inv.UpdatedAt = now
		started = inv
		return tx.PutInvite(ctx, inv)
	})
	if err != nil {
		return false, txErr("start invite", err)
	}
	if started == nil {
		return false, nil
	}

	meta := map[string]string{"inviteId": started.ID.String()}
	if started.GameSessionID != nil {
		meta["sessionId"] = started.GameSessionID.String()
	}
	for _, uid := range []uuid.UUID{started.From, started.To} {
		s.notifier.NotifyUser(ctx, uid, "Game started", started.GameID, meta)
	}
	s.logger.WithFields(logrus.Fields{"invite_id": inviteID}).Info("invite started")
	return true, nil
}

// Cancel withdraws an invite that has not started yet and archives its session.
func (s *Service) Cancel(ctx context.Context, inviteID, uid uuid.UUID) error {
	var inv *models.GameInvite
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		inv = nil
		cur, err := tx.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if !cur.IsParticipant(uid) {
			return apperr.ErrNotParticipant
		}
		switch cur.Status {
		case models.InviteCancelled:
			return nil
		case models.InvitePending, models.InviteReady:
		default:
			return apperr.ErrInviteNotCancelable
		}
		now := s.Now()
		if cur.GameSessionID != nil {
			if err := session.Archive(ctx, tx, *cur.GameSessionID, now); err != nil {
				return fmt.Errorf("archive session: %w", err)
			}
		}
		cur.Status = models.InviteCancelled
		cur.UpdatedAt = now
		inv = cur
		return tx.PutInvite(ctx, cur)
	})
	if err != nil {
		return txErr("cancel invite", err)
	}
	if inv == nil {
		return nil
	}

	other := inv.To
	if uid == inv.To {
		other = inv.From
	}
	s.notifier.NotifyUser(ctx, other, "Invite cancelled", inv.GameID, map[string]string{"inviteId": inv.ID.String()})
	s.logger.WithFields(logrus.Fields{"invite_id": inviteID, "user_id": uid}).Info("invite cancelled")
	return nil
}

// Finish closes the invite that owns sessionID. Sessions from open matchmaking
// have no invite and are ignored.
func (s *Service) Finish(ctx context.Context, sessionID uuid.UUID) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		inv, err := tx.GetInvite(ctx, sessionID)
		if err != nil {
			return err
		}
		if inv.Status != models.InviteActive && inv.Status != models.InviteReady {
			return nil
		}
		inv.Status = models.InviteFinished
		inv.UpdatedAt = s.Now()
		return tx.PutInvite(ctx, inv)
	})
	if apperr.CodeOf(err) == apperr.CodeNotFound {
		return nil
	}
	if err != nil {
		return txErr("finish invite", err)
	}
	return nil
}

// HandleGameOver is wired as the session service's game-over hook.
func (s *Service) HandleGameOver(ctx context.Context, sess *models.GameSession) {
	if err := s.Finish(ctx, sess.ID); err != nil {
		s.logger.WithFields(logrus.Fields{"session_id": sess.ID, "error": err}).Error("finish invite failed")
	}
}

func txErr(op string, err error) error {
	if apperr.CodeOf(err) != apperr.CodeUnknown {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
