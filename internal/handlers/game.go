// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/game"
)

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type gameInfo struct {
	ID    string   `json:"id"`
	Moves []string `json:"moves"`
}

// ListGamesHandler lists the registered games and their move names.
func ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	games := make([]gameInfo, 0, len(game.IDs()))
	for _, id := range game.IDs() {
		def, err := game.Lookup(id)
		if err != nil {
			continue
		}
		games = append(games, gameInfo{ID: id, Moves: def.MoveNames()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

// JoinHandler pairs the caller into a session of the requested game.
//
// Request payload: { "gameId": "tictactoe" }
func JoinHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		var req struct {
			GameID string `json:"gameId"`
		}
		if !s.decodeBody(w, r, &req) {
			return
		}
		if req.GameID == "" {
			s.writeError(w, r, apperr.New(apperr.CodeInvalidArgument, "gameId is required"))
			return
		}

		res, err := s.Sessions.Join(r.Context(), req.GameID, uid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			SessionID          string  `json:"sessionId"`
			OpponentID         *string `json:"opponentId"`
			WaitTimeoutSeconds float64 `json:"waitTimeoutSeconds,omitempty"`
		}{
			SessionID:          res.SessionID.String(),
			OpponentID:         uuidString(res.OpponentID),
			WaitTimeoutSeconds: s.MatchmakingTimeout.Seconds(),
		})
	}
}

// MakeMoveHandler applies one move for the caller.
//
// Request payload: { "move": "clickCell", "args": [4] }
func MakeMoveHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		var req struct {
			Move string            `json:"move"`
			Args []json.RawMessage `json:"args"`
		}
		if !s.decodeBody(w, r, &req) {
			return
		}
		if req.Move == "" {
			s.writeError(w, r, apperr.New(apperr.CodeInvalidArgument, "move is required"))
			return
		}

		sess, err := s.Sessions.MakeMove(r.Context(), id, uid, req.Move, req.Args)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// GetSessionHandler returns a session to one of its players.
func GetSessionHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		sess, err := s.Sessions.Get(r.Context(), id, uid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// LeaveSessionHandler drops the caller's waiting session.
func LeaveSessionHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		if err := s.Sessions.Leave(r.Context(), id, uid); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RecordPlayHandler counts a finished game against the caller's daily limit.
func RecordPlayHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		if err := s.Gate.RecordGamePlayed(r.Context(), uid); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
