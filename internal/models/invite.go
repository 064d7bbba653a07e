// internal/models/invite.go
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteReady     InviteStatus = "ready"
	InviteActive    InviteStatus = "active"
	InviteFinished  InviteStatus = "finished"
	InviteCancelled InviteStatus = "cancelled"
)

// GameInvite is a direct challenge from one user to another. The session it spawns
// shares the invite's id.
type GameInvite struct {
	ID            uuid.UUID    `json:"id"`
	From          uuid.UUID    `json:"from"`
	To            uuid.UUID    `json:"to"`
	GameID        string       `json:"gameId"`
	Status        InviteStatus `json:"status"`
	AcceptedBy    []uuid.UUID  `json:"acceptedBy"`
	GameSessionID *uuid.UUID   `json:"gameSessionId,omitempty"`
	MatchID       *uuid.UUID   `json:"matchId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	RemindedAt    *time.Time   `json:"remindedAt,omitempty"`
}

// IsParticipant reports whether uid is the sender or the recipient.
func (i *GameInvite) IsParticipant(uid uuid.UUID) bool {
	return uid != uuid.Nil && (uid == i.From || uid == i.To)
}

// HasAccepted reports whether uid is already in AcceptedBy.
func (i *GameInvite) HasAccepted(uid uuid.UUID) bool {
	return slices.Contains(i.AcceptedBy, uid)
}

// BothAccepted reports whether both participants accepted.
func (i *GameInvite) BothAccepted() bool {
	return i.HasAccepted(i.From) && i.HasAccepted(i.To)
}

// Clone returns a deep copy.
func (i *GameInvite) Clone() *GameInvite {
	if i == nil {
		return nil
	}
	c := *i
	c.AcceptedBy = slices.Clone(i.AcceptedBy)
	c.GameSessionID = clonePtr(i.GameSessionID)
	c.MatchID = clonePtr(i.MatchID)
	c.StartedAt = clonePtr(i.StartedAt)
	c.RemindedAt = clonePtr(i.RemindedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
