package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the slice of the social app's user record the engine reads.
type UserProfile struct {
	ID       uuid.UUID `json:"id"`
	Premium  bool      `json:"premium"`
	TimeZone string    `json:"timeZone"`
}

// Location resolves the profile's time zone, falling back to UTC.
func (p UserProfile) Location() *time.Location {
	if p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UserQuota tracks the invite cooldown and the daily play count of a user.
type UserQuota struct {
	UserID           uuid.UUID  `json:"userId"`
	LastInviteAt     *time.Time `json:"lastInviteAt,omitempty"`
	DailyPlayCount   int        `json:"dailyPlayCount"`
	LastGamePlayedAt *time.Time `json:"lastGamePlayedAt,omitempty"`
}

// Match links two users who both opted in, owned by the social side of the app.
type Match struct {
	ID        uuid.UUID `json:"id"`
	UserA     uuid.UUID `json:"userA"`
	UserB     uuid.UUID `json:"userB"`
	CreatedAt time.Time `json:"createdAt"`
}
