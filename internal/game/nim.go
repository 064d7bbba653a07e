package game

import "github.com/jason-s-yu/minigames/internal/models"

const nimPile = 21

type nimState struct {
	Remaining int    `json:"remaining"`
	LastMover string `json:"lastMover,omitempty"`
}

// Nim: players alternately take 1 to 3 objects from one pile; whoever takes the
// last object wins.
var Nim = &Rules[nimState]{
	Name:  "nim",
	Setup: func() nimState { return nimState{Remaining: nimPile} },
	Moves: map[string]MoveFunc[nimState]{
		"take": func(s *nimState, tc *TurnContext, args Args) error {
			n, err := args.Int(0)
			if err != nil {
				return err
			}
			if n < 1 || n > 3 {
				return Invalid("must take between 1 and 3, got %d", n)
			}
			if n > s.Remaining {
				return Invalid("only %d left", s.Remaining)
			}
			s.Remaining -= n
			s.LastMover = tc.CurrentPlayer
			tc.EndTurn()
			return nil
		},
	},
	EndIf: func(s *nimState, _ TurnContext) *models.Outcome {
		if s.Remaining == 0 {
			return &models.Outcome{Winner: s.LastMover}
		}
		return nil
	},
}
