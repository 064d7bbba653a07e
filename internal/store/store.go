// Package store defines the transactional document store every engine operation
// runs against.
//
// RunInTx gives optimistic concurrency with read-set validation: every document a
// transaction reads is checked again at commit, and if a concurrent writer changed
// it the whole function is re-run against fresh data. Functions passed to RunInTx
// must therefore be free of side effects outside the transaction.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/models"
)

// ErrConflict is returned once the retry budget is spent on conflicting commits.
var ErrConflict = errors.New("store: transaction conflict, retries exhausted")

// DefaultAttempts is the retry budget used when none is configured.
const DefaultAttempts = 5

// Tx is the view of the store inside one transaction.
type Tx interface {
	// GetSession returns apperr.ErrNotFound when the session does not exist.
	GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	// FindWaitingSession returns the oldest waiting session of gameID not created by
	// exclude, or nil.
	FindWaitingSession(ctx context.Context, gameID string, exclude uuid.UUID) (*models.GameSession, error)
	PutSession(ctx context.Context, s *models.GameSession) error
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// GetInvite returns apperr.ErrNotFound when the invite does not exist.
	GetInvite(ctx context.Context, id uuid.UUID) (*models.GameInvite, error)
	PutInvite(ctx context.Context, inv *models.GameInvite) error

	// GetQuota returns a zero quota for users without a record.
	GetQuota(ctx context.Context, uid uuid.UUID) (*models.UserQuota, error)
	PutQuota(ctx context.Context, q *models.UserQuota) error

	// GetProfile returns a default non-premium UTC profile for unknown users.
	GetProfile(ctx context.Context, uid uuid.UUID) (models.UserProfile, error)
}

// Store runs transactions and answers the sweep queries of the scheduled jobs. Sweep
// queries are not transactional; jobs re-check each hit inside its own transaction.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	SessionsWithLongLogs(ctx context.Context, threshold int) ([]uuid.UUID, error)
	IdleSessions(ctx context.Context, updatedBefore time.Time) ([]uuid.UUID, error)
	PendingInvitesBefore(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
	InvitesWithStatus(ctx context.Context, status models.InviteStatus) ([]uuid.UUID, error)
}
