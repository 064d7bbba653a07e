package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/sirupsen/logrus"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken reads the JWT from the Authorization header, falling back to the
// auth_token cookie.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return extractCookieToken(r.Header.Get("Cookie"), "auth_token")
}

// authenticate resolves the calling user, writing a 401 and returning false on failure.
func (s *APIServer) authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token := requestToken(r)
	if token == "" {
		s.writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "missing auth_token"))
		return uuid.Nil, false
	}
	uid, err := s.Verifier.Authenticate(token)
	if err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, false
	}
	return uid, true
}

// pathID parses the {id} path segment.
func (s *APIServer) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, apperr.New(apperr.CodeInvalidArgument, "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched.
func (s *APIServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, apperr.Wrap(apperr.CodeInvalidArgument, "invalid payload", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError renders err as {"error", "code"}. Errors without a domain code are
// logged and reported as a generic internal error.
func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.Logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("request failed")
	}
	writeJSON(w, status, errorBody{
		Error: apperr.PublicMessage(err),
		Code:  apperr.KindOf(err).String(),
	})
}
