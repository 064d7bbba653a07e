package game

import "github.com/jason-s-yu/minigames/internal/models"

type ticTacToeState struct {
	Cells [9]string `json:"cells"`
}

var ticTacToeLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe is the classic 3x3 game. Cells hold the seat that claimed them.
var TicTacToe = &Rules[ticTacToeState]{
	Name:  "tictactoe",
	Setup: func() ticTacToeState { return ticTacToeState{} },
	Moves: map[string]MoveFunc[ticTacToeState]{
		"clickCell": func(s *ticTacToeState, tc *TurnContext, args Args) error {
			i, err := args.Int(0)
			if err != nil {
				return err
			}
			if i < 0 || i >= len(s.Cells) {
				return Invalid("cell %d out of range", i)
			}
			if s.Cells[i] != "" {
				return Invalid("cell %d already taken", i)
			}
			s.Cells[i] = tc.CurrentPlayer
			return nil
		},
	},
	Turn: TurnPolicy{MoveLimit: 1},
	EndIf: func(s *ticTacToeState, _ TurnContext) *models.Outcome {
		for _, l := range ticTacToeLines {
			if c := s.Cells[l[0]]; c != "" && c == s.Cells[l[1]] && c == s.Cells[l[2]] {
				return &models.Outcome{Winner: c}
			}
		}
		for _, c := range s.Cells {
			if c == "" {
				return nil
			}
		}
		return &models.Outcome{Draw: true}
	},
}
