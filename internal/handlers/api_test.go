package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/auth"
	"github.com/jason-s-yu/minigames/internal/invite"
	"github.com/jason-s-yu/minigames/internal/notify"
	"github.com/jason-s-yu/minigames/internal/quota"
	"github.com/jason-s-yu/minigames/internal/session"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	handler http.Handler
	signer  *auth.Signer
	matcher *invite.MemoryMatcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger, _ := test.NewNullLogger()
	signer, verifier, err := auth.GenerateKeys(time.Hour)
	require.NoError(t, err)

	mem := store.NewMemory(100)
	rec := &notify.Recorder{}
	gate := quota.NewGate(mem, logger, 2, time.Minute)
	matcher := invite.NewMemoryMatcher()
	sessions := session.NewService(mem, rec, logger)
	invites := invite.NewService(mem, gate, matcher, rec, logger)
	sessions.OnGameOver = invites.HandleGameOver

	srv := &APIServer{
		Sessions:           sessions,
		Invites:            invites,
		Gate:               gate,
		Verifier:           verifier,
		Logger:             logger,
		MatchmakingTimeout: 30 * time.Second,
	}
	mux := http.NewServeMux()
	srv.Routes(mux)
	return &testAPI{handler: mux, signer: signer, matcher: matcher}
}

func (a *testAPI) token(t *testing.T, uid uuid.UUID) string {
	t.Helper()
	tok, err := a.signer.CreateJWT(uid)
	require.NoError(t, err)
	return tok
}

// do sends a request as uid (or anonymously for uuid.Nil) and decodes the JSON reply into out.
func (a *testAPI) do(t *testing.T, uid uuid.UUID, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if uid != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+a.token(t, uid))
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type joinReply struct {
	SessionID  string  `json:"sessionId"`
	OpponentID *string `json:"opponentId"`
}

type sessionReply struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Players       []*string         `json:"players"`
	CurrentPlayer string            `json:"currentPlayer"`
	Gameover      map[string]any    `json:"gameover"`
	MoveLog       []json.RawMessage `json:"moveLog"`
}

func TestHealthAndGames(t *testing.T) {
	api := newTestAPI(t)
	var health map[string]string
	assert.Equal(t, http.StatusOK, api.do(t, uuid.Nil, http.MethodGet, "/healthz", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var games struct {
		Games []gameInfo `json:"games"`
	}
	assert.Equal(t, http.StatusOK, api.do(t, uuid.Nil, http.MethodGet, "/games", nil, &games))
	ids := make([]string, 0, len(games.Games))
	for _, g := range games.Games {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"connectfour", "nim", "tictactoe"}, ids)
}

func TestRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)
	var e errorBody
	code := api.do(t, uuid.Nil, http.MethodPost, "/games/join", map[string]string{"gameId": "nim"}, &e)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthenticated", e.Code)

	req := httptest.NewRequest(http.MethodPost, "/quota/play", nil)
	req.Header.Set("Cookie", "theme=dark; auth_token=not-a-jwt")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieAuthentication(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/quota/play", nil)
	req.Header.Set("Cookie", "auth_token="+api.token(t, uuid.New())+"; theme=dark")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestJoinAndPlayTicTacToe(t *testing.T) {
	api := newTestAPI(t)
	u1, u2 := uuid.New(), uuid.New()

	var first, second joinReply
	require.Equal(t, http.StatusOK, api.do(t, u1, http.MethodPost, "/games/join", map[string]string{"gameId": "tictactoe"}, &first))
	assert.Nil(t, first.OpponentID)
	require.Equal(t, http.StatusOK, api.do(t, u2, http.MethodPost, "/games/join", map[string]string{"gameId": "tictactoe"}, &second))
	require.NotNil(t, second.OpponentID)
	assert.Equal(t, u1.String(), *second.OpponentID)
	assert.Equal(t, first.SessionID, second.SessionID)

	movePath := "/sessions/" + first.SessionID + "/moves"
	var e errorBody
	assert.Equal(t, http.StatusConflict, api.do(t, u2, http.MethodPost, movePath, map[string]any{"move": "clickCell", "args": []int{0}}, &e))
	assert.Equal(t, "FailedPrecondition", e.Code)

	moves := []struct {
		who  uuid.UUID
		cell int
	}{{u1, 0}, {u2, 3}, {u1, 1}, {u2, 4}, {u1, 2}}
	var sess sessionReply
	for _, m := range moves {
		require.Equal(t, http.StatusOK, api.do(t, m.who, http.MethodPost, movePath, map[string]any{"move": "clickCell", "args": []int{m.cell}}, &sess))
	}
	assert.Equal(t, "finished", sess.Status)
	assert.Equal(t, "0", sess.Gameover["winner"])
	assert.Len(t, sess.MoveLog, 5)

	var got sessionReply
	assert.Equal(t, http.StatusOK, api.do(t, u2, http.MethodGet, "/sessions/"+first.SessionID, nil, &got))
	assert.Equal(t, sess.Gameover, got.Gameover)
	assert.Equal(t, http.StatusForbidden, api.do(t, uuid.New(), http.MethodGet, "/sessions/"+first.SessionID, nil, nil))
}

func TestMoveErrors(t *testing.T) {
	api := newTestAPI(t)
	u1, u2 := uuid.New(), uuid.New()
	var j joinReply
	require.Equal(t, http.StatusOK, api.do(t, u1, http.MethodPost, "/games/join", map[string]string{"gameId": "nim"}, &j))
	require.Equal(t, http.StatusOK, api.do(t, u2, http.MethodPost, "/games/join", map[string]string{"gameId": "nim"}, nil))

	path := "/sessions/" + j.SessionID + "/moves"
	var e errorBody
	assert.Equal(t, http.StatusBadRequest, api.do(t, u1, http.MethodPost, path, map[string]any{"move": "take", "args": []int{7}}, &e))
	assert.Equal(t, "InvalidArgument", e.Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, u1, http.MethodPost, path, map[string]any{}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(t, u1, http.MethodPost, "/sessions/not-a-uuid/moves", map[string]any{"move": "take"}, nil))
	assert.Equal(t, http.StatusNotFound, api.do(t, u1, http.MethodPost, "/sessions/"+uuid.NewString()+"/moves", map[string]any{"move": "take", "args": []int{1}}, nil))
	assert.Equal(t, http.StatusConflict, api.do(t, u1, http.MethodPost, "/games/join", map[string]string{"gameId": "chess"}, nil))
}

func TestWaitingSessionShowsEmptySeat(t *testing.T) {
	api := newTestAPI(t)
	u := uuid.New()
	var j joinReply
	require.Equal(t, http.StatusOK, api.do(t, u, http.MethodPost, "/games/join", map[string]string{"gameId": "nim"}, &j))

	var got sessionReply
	require.Equal(t, http.StatusOK, api.do(t, u, http.MethodGet, "/sessions/"+j.SessionID, nil, &got))
	assert.Equal(t, "waiting", got.Status)
	require.Len(t, got.Players, 2)
	require.NotNil(t, got.Players[0])
	assert.Equal(t, u.String(), *got.Players[0])
	assert.Nil(t, got.Players[1])
}

func TestLeaveWaitingSession(t *testing.T) {
	api := newTestAPI(t)
	u := uuid.New()
	var j joinReply
	require.Equal(t, http.StatusOK, api.do(t, u, http.MethodPost, "/games/join", map[string]string{"gameId": "connectfour"}, &j))
	assert.Equal(t, http.StatusNoContent, api.do(t, u, http.MethodDelete, "/sessions/"+j.SessionID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(t, u, http.MethodGet, "/sessions/"+j.SessionID, nil, nil))
}

func TestQuotaPlay(t *testing.T) {
	api := newTestAPI(t)
	u := uuid.New()
	assert.Equal(t, http.StatusNoContent, api.do(t, u, http.MethodPost, "/quota/play", nil, nil))
	assert.Equal(t, http.StatusNoContent, api.do(t, u, http.MethodPost, "/quota/play", nil, nil))
	var e errorBody
	assert.Equal(t, http.StatusTooManyRequests, api.do(t, u, http.MethodPost, "/quota/play", nil, &e))
	assert.Equal(t, "ResourceExhausted", e.Code)
}

func TestInviteFlow(t *testing.T) {
	api := newTestAPI(t)
	from, to := uuid.New(), uuid.New()
	api.matcher.Like(from, to)
	api.matcher.Like(to, from)

	var sent map[string]string
	require.Equal(t, http.StatusCreated, api.do(t, from, http.MethodPost, "/invites", map[string]string{"to": to.String(), "gameId": "nim"}, &sent))
	inviteID := sent["inviteId"]
	require.NotEmpty(t, inviteID)

	assert.Equal(t, http.StatusTooManyRequests, api.do(t, from, http.MethodPost, "/invites", map[string]string{"to": uuid.NewString(), "gameId": "nim"}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(t, to, http.MethodPost, "/invites", map[string]string{"to": to.String(), "gameId": "nim"}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(t, to, http.MethodPost, "/invites", map[string]string{"to": "nobody", "gameId": "nim"}, nil))

	var accepted map[string]*string
	require.Equal(t, http.StatusOK, api.do(t, to, http.MethodPost, "/invites/"+inviteID+"/accept", nil, &accepted))
	require.NotNil(t, accepted["matchId"])

	// the invite's session shares its id and is ready to play
	var sess sessionReply
	require.Equal(t, http.StatusOK, api.do(t, from, http.MethodGet, "/sessions/"+inviteID, nil, &sess))
	assert.Equal(t, "active", sess.Status)

	assert.Equal(t, http.StatusConflict, api.do(t, from, http.MethodPost, "/invites/"+inviteID+"/cancel", nil, nil))
}

func TestCancelInvite(t *testing.T) {
	api := newTestAPI(t)
	from, to := uuid.New(), uuid.New()
	var sent map[string]string
	require.Equal(t, http.StatusCreated, api.do(t, from, http.MethodPost, "/invites", map[string]string{"to": to.String(), "gameId": "tictactoe"}, &sent))

	assert.Equal(t, http.StatusForbidden, api.do(t, uuid.New(), http.MethodPost, "/invites/"+sent["inviteId"]+"/cancel", nil, nil))
	assert.Equal(t, http.StatusNoContent, api.do(t, to, http.MethodPost, "/invites/"+sent["inviteId"]+"/cancel", nil, nil))

	var e errorBody
	assert.Equal(t, http.StatusConflict, api.do(t, to, http.MethodPost, "/invites/"+sent["inviteId"]+"/accept", nil, &e))
	assert.Equal(t, "invite cancelled", e.Error)
}
