package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySeatEncodesAsNull(t *testing.T) {
	host := uuid.New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := NewWaitingSession(uuid.New(), "nim", host, Snapshot{State: json.RawMessage(`{"n":10}`), CurrentPlayer: Seat0}, now)

	raw, err := json.Marshal(sess)
	require.NoError(t, err)

	var wire struct {
		Players []*string `json:"players"`
		GameID  string    `json:"gameId"`
		Status  string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Len(t, wire.Players, 2)
	require.NotNil(t, wire.Players[0])
	assert.Equal(t, host.String(), *wire.Players[0])
	assert.Nil(t, wire.Players[1])
	assert.Equal(t, "nim", wire.GameID)
	assert.Equal(t, "waiting", wire.Status)
	assert.NotContains(t, string(raw), uuid.Nil.String())

	var back GameSession
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, sess.Players, back.Players)
	assert.Equal(t, sess.ID, back.ID)
	assert.True(t, back.CreatedAt.Equal(now))
	assert.True(t, back.IsWaiting())
}

func TestFilledSeatsEncodeAsIDs(t *testing.T) {
	sess := GameSession{ID: uuid.New(), Players: [2]uuid.UUID{uuid.New(), uuid.New()}, Status: SessionActive}
	raw, err := json.Marshal(&sess)
	require.NoError(t, err)

	var wire struct {
		Players []string `json:"players"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, []string{sess.Players[0].String(), sess.Players[1].String()}, wire.Players)
}
