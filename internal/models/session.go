// internal/models/session.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Seats are addressed by their index as a string, matching how game state stores them.
const (
	Seat0 = "0"
	Seat1 = "1"
)

// OtherSeat returns the opposing seat.
func OtherSeat(seat string) string {
	if seat == Seat0 {
		return Seat1
	}
	return Seat0
}

type SessionStatus string

const (
	SessionWaiting  SessionStatus = "waiting"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
	SessionArchived SessionStatus = "archived"
)

// Outcome is the terminal result of a game.
type Outcome struct {
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
}

// Snapshot is the point a replay starts from. A fresh session starts from the game's
// setup state with seat "0" to move; compression moves the snapshot forward.
type Snapshot struct {
	State         json.RawMessage `json:"state"`
	CurrentPlayer string          `json:"currentPlayer"`
	Gameover      *Outcome        `json:"gameover,omitempty"`
}

// MoveRecord is one entry of a session's append-only move log.
type MoveRecord struct {
	Action string            `json:"action"`
	Player string            `json:"player"`
	Args   []json.RawMessage `json:"args"`
	At     time.Time         `json:"at"`
}

// GameSession is a two-seat game instance. CurrentPlayer and Gameover are caches of
// replaying Base through MoveLog; only Record writes them.
type GameSession struct {
	ID            uuid.UUID     `json:"id"`
	GameID        string        `json:"gameId"`
	Players       [2]uuid.UUID  `json:"players"`
	Status        SessionStatus `json:"status"`
	Base          Snapshot      `json:"base"`
	MoveLog       []MoveRecord  `json:"moveLog"`
	CurrentPlayer string        `json:"currentPlayer"`
	Gameover      *Outcome      `json:"gameover,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	NudgedAt      *time.Time    `json:"nudgedAt,omitempty"`
}

type sessionJSON GameSession

// MarshalJSON writes an empty seat as null rather than the zero UUID.
func (s GameSession) MarshalJSON() ([]byte, error) {
	var players [2]*uuid.UUID
	for i := range s.Players {
		if s.Players[i] != uuid.Nil {
			p := s.Players[i]
			players[i] = &p
		}
	}
	return json.Marshal(struct {
		sessionJSON
		Players [2]*uuid.UUID `json:"players"`
	}{sessionJSON(s), players})
}

// UnmarshalJSON reads a null seat back as uuid.Nil.
func (s *GameSession) UnmarshalJSON(data []byte) error {
	aux := struct {
		*sessionJSON
		Players [2]*uuid.UUID `json:"players"`
	}{sessionJSON: (*sessionJSON)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	for i, p := range aux.Players {
		s.Players[i] = uuid.Nil
		if p != nil {
			s.Players[i] = *p
		}
	}
	return nil
}

// NewWaitingSession creates a session holding uid in seat 0.
func NewWaitingSession(id uuid.UUID, gameID string, uid uuid.UUID, base Snapshot, now time.Time) *GameSession {
	return &GameSession{
		ID:            id,
		GameID:        gameID,
		Players:       [2]uuid.UUID{uid, uuid.Nil},
		Status:        SessionWaiting,
		Base:          base,
		MoveLog:       []MoveRecord{},
		CurrentPlayer: base.CurrentPlayer,
		Gameover:      base.Gameover,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Seat returns the seat uid occupies.
func (s *GameSession) Seat(uid uuid.UUID) (string, bool) {
	switch {
	case uid == uuid.Nil:
		return "", false
	case s.Players[0] == uid:
		return Seat0, true
	case s.Players[1] == uid:
		return Seat1, true
	}
	return "", false
}

// PlayerAt returns the user sitting in seat, or uuid.Nil.
func (s *GameSession) PlayerAt(seat string) uuid.UUID {
	if seat == Seat1 {
		return s.Players[1]
	}
	return s.Players[0]
}

// Opponent returns the other participant of uid, or uuid.Nil when the seat is empty.
func (s *GameSession) Opponent(uid uuid.UUID) uuid.UUID {
	seat, ok := s.Seat(uid)
	if !ok {
		return uuid.Nil
	}
	return s.PlayerAt(OtherSeat(seat))
}

// IsWaiting reports whether seat 1 is still open.
func (s *GameSession) IsWaiting() bool {
	return s.Status == SessionWaiting && s.Players[1] == uuid.Nil
}

// Record replaces the move log and the caches derived from it in one step.
func (s *GameSession) Record(base Snapshot, log []MoveRecord, currentPlayer string, gameover *Outcome, now time.Time) {
	s.Base = base
	s.MoveLog = log
	s.CurrentPlayer = currentPlayer
	s.Gameover = gameover
	if gameover != nil && s.Status == SessionActive {
		s.Status = SessionFinished
	}
	s.UpdatedAt = now
}

// Clone returns a deep copy so store implementations never share mutable slices.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Base.State = append(json.RawMessage(nil), s.Base.State...)
	c.Base.Gameover = cloneOutcome(s.Base.Gameover)
	c.Gameover = cloneOutcome(s.Gameover)
	c.MoveLog = make([]MoveRecord, len(s.MoveLog))
	for i, m := range s.MoveLog {
		args := make([]json.RawMessage, len(m.Args))
		for j, a := range m.Args {
			args[j] = append(json.RawMessage(nil), a...)
		}
		m.Args = args
		c.MoveLog[i] = m
	}
	if s.NudgedAt != nil {
		t := *s.NudgedAt
		c.NudgedAt = &t
	}
	return &c
}

func cloneOutcome(o *Outcome) *Outcome {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
