// internal/handlers/invite.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
)

// SendInviteHandler challenges another user to a game.
//
// Request payload: { "to": "some-uuid-string", "gameId": "nim" }
func SendInviteHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		var req struct {
			To     string `json:"to"`
			GameID string `json:"gameId"`
		}
		if !s.decodeBody(w, r, &req) {
			return
		}
		to, err := uuid.Parse(req.To)
		if err != nil {
			s.writeError(w, r, apperr.New(apperr.CodeInvalidArgument, "invalid to"))
			return
		}

		id, err := s.Invites.Send(r.Context(), uid, to, req.GameID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"inviteId": id.String()})
	}
}

// AcceptInviteHandler records the caller's acceptance. matchId is null until both
// sides accepted and they like each other.
func AcceptInviteHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		matchID, err := s.Invites.Accept(r.Context(), id, uid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]*string{"matchId": uuidString(matchID)})
	}
}

// CancelInviteHandler withdraws an invite that has not started.
func CancelInviteHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		if err := s.Invites.Cancel(r.Context(), id, uid); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
