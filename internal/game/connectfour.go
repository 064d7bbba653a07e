package game

import "github.com/jason-s-yu/minigames/internal/models"

const (
	c4Rows = 6
	c4Cols = 7
)

// connectFourState stores rows bottom-up.
type connectFourState struct {
	Board [c4Rows][c4Cols]string `json:"board"`
}

var ConnectFour = &Rules[connectFourState]{
	Name:  "connectfour",
	Setup: func() connectFourState { return connectFourState{} },
	Moves: map[string]MoveFunc[connectFourState]{
		"dropDisc": func(s *connectFourState, tc *TurnContext, args Args) error {
			col, err := args.Int(0)
			if err != nil {
				return err
			}
			if col < 0 || col >= c4Cols {
				return Invalid("column %d out of range", col)
			}
			for row := 0; row < c4Rows; row++ {
				if s.Board[row][col] == "" {
					s.Board[row][col] = tc.CurrentPlayer
					return nil
				}
			}
			return Invalid("column %d is full", col)
		},
	},
	Turn:  TurnPolicy{MoveLimit: 1},
	EndIf: connectFourOutcome,
}

func connectFourOutcome(s *connectFourState, _ TurnContext) *models.Outcome {
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	full := true
	for r := 0; r < c4Rows; r++ {
		for c := 0; c < c4Cols; c++ {
			seat := s.Board[r][c]
			if seat == "" {
				full = false
				continue
			}
			for _, d := range dirs {
				n := 1
				for n < 4 {
					rr, cc := r+d[0]*n, c+d[1]*n
					if rr < 0 || rr >= c4Rows || cc < 0 || cc >= c4Cols || s.Board[rr][cc] != seat {
						break
					}
					n++
				}
				if n == 4 {
					return &models.Outcome{Winner: seat}
				}
			}
		}
	}
	if full {
		return &models.Outcome{Draw: true}
	}
	return nil
}
