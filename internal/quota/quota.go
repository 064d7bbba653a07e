// Package quota enforces the per-user daily play limit and the invite cooldown.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDailyLimit     = 5
	DefaultInviteCooldown = 60 * time.Second
)

// Gate is consulted before a game is played and inside invite sending.
type Gate struct {
	store      store.Store
	logger     *logrus.Logger
	dailyLimit int
	cooldown   time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// NewGate builds a Gate. Non-positive limits fall back to the defaults.
func NewGate(st store.Store, logger *logrus.Logger, dailyLimit int, cooldown time.Duration) *Gate {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if cooldown <= 0 {
		cooldown = DefaultInviteCooldown
	}
	return &Gate{
		store:      st,
		logger:     logger,
		dailyLimit: dailyLimit,
		cooldown:   cooldown,
		Now:        time.Now,
	}
}

// RecordGamePlayed counts one game against uid's daily limit. Premium users are
// never limited. The count resets when the last play happened on an earlier
// calendar day in the user's time zone.
func (g *Gate) RecordGamePlayed(ctx context.Context, uid uuid.UUID) error {
	err := g.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		now := g.Now()
		profile, err := tx.GetProfile(ctx, uid)
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		q, err := tx.GetQuota(ctx, uid)
		if err != nil {
			return fmt.Errorf("get quota: %w", err)
		}

		// the count always belongs to the local day of the last play, premium or not
		if q.LastGamePlayedAt == nil || !sameDay(*q.LastGamePlayedAt, now, profile.Location()) {
			q.DailyPlayCount = 0
		}
		if !profile.Premium {
			if q.DailyPlayCount >= g.dailyLimit {
				return apperr.ErrQuotaExceeded
			}
			q.DailyPlayCount++
		}
		q.LastGamePlayedAt = &now
		return tx.PutQuota(ctx, q)
	})
	if err != nil {
		return err
	}
	g.logger.WithFields(logrus.Fields{"user_id": uid}).Debug("recorded game played")
	return nil
}

// ReserveInvite fails with ErrTooFrequent while uid is inside the cooldown window;
// otherwise it stamps the send time. It runs inside the caller's transaction.
func (g *Gate) ReserveInvite(ctx context.Context, tx store.Tx, uid uuid.UUID, now time.Time) error {
	q, err := tx.GetQuota(ctx, uid)
	if err != nil {
		return fmt.Errorf("get quota: %w", err)
	}
	if q.LastInviteAt != nil && now.Sub(*q.LastInviteAt) < g.cooldown {
		return apperr.ErrTooFrequent
	}
	q.LastInviteAt = &now
	return tx.PutQuota(ctx, q)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
