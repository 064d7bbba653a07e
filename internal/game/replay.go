// internal/game/replay.go
package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/models"
)

// Mode selects how replay treats a rejected move.
type Mode int

const (
	// Tolerant skips rejected moves and keeps going, for reading historical logs.
	Tolerant Mode = iota
	// Strict stops at the first rejected move and returns its error.
	Strict
)

// Result is the state derived from a snapshot and a move log.
type Result struct {
	State         json.RawMessage
	CurrentPlayer string
	Gameover      *models.Outcome
	Valid         bool
	Applied       int
}

// Snapshot returns the result as a base for further replays.
func (r Result) Snapshot() models.Snapshot {
	return models.Snapshot{State: r.State, CurrentPlayer: r.CurrentPlayer, Gameover: r.Gameover}
}

// Definition is the type-erased view of a minigame used by the session protocol.
type Definition interface {
	ID() string
	MoveNames() []string
	Initial() (models.Snapshot, error)
	Replay(base models.Snapshot, log []models.MoveRecord, mode Mode) (Result, error)
	Apply(base models.Snapshot, move models.MoveRecord) (Result, error)
}

// Replay reconstructs the state reached from base by applying log in order. Replay
// stops at the first move that produces an outcome; a base that is already over
// yields itself.
func (r *Rules[S]) Replay(base models.Snapshot, log []models.MoveRecord, mode Mode) (Result, error) {
	s, err := r.decode(base.State)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		CurrentPlayer: base.CurrentPlayer,
		Gameover:      base.Gameover,
		Valid:         true,
	}
	if res.CurrentPlayer == "" {
		res.CurrentPlayer = models.Seat0
	}

	if res.Gameover == nil {
		for i, m := range log {
			next, over, err := r.step(s, res.CurrentPlayer, m)
			if err != nil {
				if apperr.CodeOf(err) != apperr.CodeInvalidMove {
					return Result{}, err
				}
				res.Valid = false
				if mode == Strict {
					return res, fmt.Errorf("move %d (%s): %w", i, m.Action, err)
				}
				continue
			}
			res.Applied++
			res.CurrentPlayer = next
			if over != nil {
				res.Gameover = over
				break
			}
		}
	}

	res.State, err = json.Marshal(s)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s state: %w", r.Name, err)
	}
	return res, nil
}

// Apply plays one move on top of base for base.CurrentPlayer.
func (r *Rules[S]) Apply(base models.Snapshot, move models.MoveRecord) (Result, error) {
	if base.Gameover != nil {
		return Result{}, apperr.ErrGameAlreadyFinished
	}
	res, err := r.Replay(base, []models.MoveRecord{move}, Strict)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return Result{}, ae
		}
		return Result{}, err
	}
	return res, nil
}

// Equal reports whether two results describe the same observable session state.
func Equal(a, b Result) bool {
	if a.CurrentPlayer != b.CurrentPlayer || string(a.State) != string(b.State) {
		return false
	}
	switch {
	case a.Gameover == nil && b.Gameover == nil:
		return true
	case a.Gameover == nil || b.Gameover == nil:
		return false
	}
	return *a.Gameover == *b.Gameover
}
