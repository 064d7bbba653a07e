// internal/invite/sweep.go
package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

// RemindPending notifies recipients of invites left pending longer than olderThan.
// Each invite is reminded at most once.
func (s *Service) RemindPending(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.Now()
	ids, err := s.store.PendingInvitesBefore(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("list pending invites: %w", err)
	}

	reminded := 0
	for _, id := range ids {
		var inv *models.GameInvite
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			inv = nil
			cur, err := tx.GetInvite(ctx, id)
			if err != nil {
				return err
			}
			if cur.Status != models.InvitePending || cur.RemindedAt != nil {
				return nil
			}
			cur.RemindedAt = &now
			inv = cur
			return tx.PutInvite(ctx, cur)
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{"invite_id": id, "error": err}).Error("invite reminder failed")
			continue
		}
		if inv == nil {
			continue
		}
		for _, uid := range []uuid.UUID{inv.From, inv.To} {
			if !inv.HasAccepted(uid) {
				s.notifier.NotifyUser(ctx, uid, "You have a pending game invite", inv.GameID, map[string]string{
					"inviteId": inv.ID.String(),
				})
			}
		}
		reminded++
	}
	return reminded, nil
}

// StartReady starts invites that reached ready but were never started, e.g. when
// the process died between accept and start.
func (s *Service) StartReady(ctx context.Context) (int, error) {
	ids, err := s.store.InvitesWithStatus(ctx, models.InviteReady)
	if err != nil {
		return 0, fmt.Errorf("list ready invites: %w", err)
	}
	started := 0
	for _, id := range ids {
		ok, err := s.start(ctx, id)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"invite_id": id, "error": err}).Error("start ready invite failed")
			continue
		}
		if ok {
			started++
		}
	}
	return started, nil
}
