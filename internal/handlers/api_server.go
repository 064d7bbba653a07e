// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/minigames/internal/auth"
	"github.com/jason-s-yu/minigames/internal/invite"
	"github.com/jason-s-yu/minigames/internal/quota"
	"github.com/jason-s-yu/minigames/internal/session"
	"github.com/sirupsen/logrus"
)

// APIServer holds the services behind the HTTP API.
type APIServer struct {
	Sessions *session.Service
	Invites  *invite.Service
	Gate     *quota.Gate
	Verifier *auth.Verifier
	Logger   *logrus.Logger

	// MatchmakingTimeout is reported to clients so they know when to give up waiting
	// and leave their session.
	MatchmakingTimeout time.Duration
}

// Routes registers every endpoint on mux.
func (s *APIServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", HealthHandler)
	mux.HandleFunc("GET /games", ListGamesHandler)
	mux.HandleFunc("POST /games/join", JoinHandler(s))

	mux.HandleFunc("GET /sessions/{id}", GetSessionHandler(s))
	mux.HandleFunc("DELETE /sessions/{id}", LeaveSessionHandler(s))
	mux.HandleFunc("POST /sessions/{id}/moves", MakeMoveHandler(s))

	mux.HandleFunc("POST /quota/play", RecordPlayHandler(s))

	mux.HandleFunc("POST /invites", SendInviteHandler(s))
	mux.HandleFunc("POST /invites/{id}/accept", AcceptInviteHandler(s))
	mux.HandleFunc("POST /invites/{id}/cancel", CancelInviteHandler(s))
}
