// internal/game/rules.go
package game

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/models"
)

// ErrInvalidMove is returned by move handlers to reject a move.
var ErrInvalidMove = apperr.ErrInvalidMove

// Invalid rejects a move with a reason shown to the player.
func Invalid(format string, a ...any) error {
	return apperr.New(apperr.CodeInvalidMove, fmt.Sprintf(format, a...))
}

// TurnContext is handed to move handlers and endIf.
type TurnContext struct {
	CurrentPlayer string
	endTurn       bool
}

// EndTurn passes the turn to the other seat once the move completes.
func (tc *TurnContext) EndTurn() {
	tc.endTurn = true
}

// MoveFunc mutates the state in place. It must validate before mutating; a returned
// error rejects the move.
type MoveFunc[S any] func(s *S, tc *TurnContext, args Args) error

// TurnPolicy controls automatic turn passing. MoveLimit 1 flips the seat after every
// move; 0 leaves it to the handlers.
type TurnPolicy struct {
	MoveLimit int
}

// Rules describes one minigame over a JSON-encodable state type S.
type Rules[S any] struct {
	Name  string
	Setup func() S
	Moves map[string]MoveFunc[S]
	Turn  TurnPolicy
	EndIf func(s *S, tc TurnContext) *models.Outcome
}

// ID implements Definition.
func (r *Rules[S]) ID() string {
	return r.Name
}

// MoveNames implements Definition.
func (r *Rules[S]) MoveNames() []string {
	names := make([]string, 0, len(r.Moves))
	for name := range r.Moves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initial implements Definition.
func (r *Rules[S]) Initial() (models.Snapshot, error) {
	s := r.Setup()
	raw, err := json.Marshal(s)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("encode %s setup: %w", r.Name, err)
	}
	return models.Snapshot{State: raw, CurrentPlayer: models.Seat0}, nil
}

func (r *Rules[S]) decode(raw json.RawMessage) (*S, error) {
	s := new(S)
	if len(raw) == 0 {
		*s = r.Setup()
		return s, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode %s state: %w", r.Name, err)
	}
	return s, nil
}

// step applies a single move for current. On rejection the state is restored.
func (r *Rules[S]) step(s *S, current string, m models.MoveRecord) (string, *models.Outcome, error) {
	fn, ok := r.Moves[m.Action]
	if !ok {
		return "", nil, Invalid("unknown move %q", m.Action)
	}

	before, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s state: %w", r.Name, err)
	}

	tc := &TurnContext{CurrentPlayer: current}
	if err := fn(s, tc, Args(m.Args)); err != nil {
		var restored S
		if uerr := json.Unmarshal(before, &restored); uerr != nil {
			return "", nil, fmt.Errorf("restore %s state: %w", r.Name, uerr)
		}
		*s = restored
		if apperr.CodeOf(err) != apperr.CodeInvalidMove {
			err = apperr.Wrap(apperr.CodeInvalidMove, "invalid move", err)
		}
		return "", nil, err
	}

	next := current
	if tc.endTurn || r.Turn.MoveLimit == 1 {
		next = models.OtherSeat(current)
	}

	var over *models.Outcome
	if r.EndIf != nil {
		over = r.EndIf(s, TurnContext{CurrentPlayer: next})
	}
	return next, over, nil
}

// Args are the positional JSON arguments of a move.
type Args []json.RawMessage

// Int decodes argument i as an integer.
func (a Args) Int(i int) (int, error) {
	if i >= len(a) {
		return 0, Invalid("missing argument %d", i)
	}
	var n int
	if err := json.Unmarshal(a[i], &n); err != nil {
		return 0, Invalid("argument %d must be an integer", i)
	}
	return n, nil
}

// String decodes argument i as a string.
func (a Args) String(i int) (string, error) {
	if i >= len(a) {
		return "", Invalid("missing argument %d", i)
	}
	var v string
	if err := json.Unmarshal(a[i], &v); err != nil {
		return "", Invalid("argument %d must be a string", i)
	}
	return v, nil
}

// EncodeArgs builds Args from plain values.
func EncodeArgs(vals ...any) (Args, error) {
	out := make(Args, 0, len(vals))
	for _, v := range vals {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode arg: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}
