package compress

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longSession builds a connect-four session with n log entries that never ends.
// Discs follow a fixed board pattern with no four in a row; once that pattern is
// exhausted the log is padded with rejected drops, which replay skips.
func longSession(t *testing.T, n int) *models.GameSession {
	t.Helper()
	base, err := game.ConnectFour.Initial()
	require.NoError(t, err)
	sess := models.NewWaitingSession(uuid.New(), "connectfour", uuid.New(), base, time.Now())
	sess.Players[1] = uuid.New()
	sess.Status = models.SessionActive

	// seat owning (row, col) in the pattern: columns alternate vertically and
	// flip phase every two columns
	target := func(row, col int) int { return (row + (col/2)%2) % 2 }
	var heights [7]int
	seat := 0
	var log []models.MoveRecord
	for len(log) < n {
		col := 99
		for c := 0; c < 7; c++ {
			if heights[c] < 6 && target(heights[c], c) == seat {
				col = c
				heights[c]++
				break
			}
		}
		a, err := game.EncodeArgs(col)
		require.NoError(t, err)
		log = append(log, models.MoveRecord{Action: "dropDisc", Player: fmt.Sprint(seat), Args: a})
		if col != 99 {
			seat ^= 1
		}
	}
	res, err := game.ConnectFour.Replay(base, log, game.Tolerant)
	require.NoError(t, err)
	require.Nil(t, res.Gameover)
	sess.Record(base, log, res.CurrentPlayer, res.Gameover, time.Now())
	return sess
}

func seed(t *testing.T, mem *store.Memory, sessions ...*models.GameSession) {
	t.Helper()
	require.NoError(t, mem.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, s := range sessions {
			if err := tx.PutSession(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}))
}

func load(t *testing.T, mem *store.Memory, id uuid.UUID) *models.GameSession {
	t.Helper()
	var sess *models.GameSession
	require.NoError(t, mem.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		sess, err = tx.GetSession(ctx, id)
		return err
	}))
	return sess
}

func TestCompressionEquivalence(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory(0)
	job := NewJob(mem, logger, 10, 8)

	sess := longSession(t, 30)
	lastMove := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	nudged := lastMove.Add(time.Hour)
	sess.UpdatedAt = lastMove
	sess.NudgedAt = &nudged
	seed(t, mem, sess)
	before, err := game.ConnectFour.Replay(sess.Base, sess.MoveLog, game.Tolerant)
	require.NoError(t, err)

	sum, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, Compressed: 1}, sum)

	after := load(t, mem, sess.ID)
	assert.Len(t, after.MoveLog, 8)
	res, err := game.ConnectFour.Replay(after.Base, after.MoveLog, game.Tolerant)
	require.NoError(t, err)
	assert.True(t, game.Equal(before, res))
	if diff := cmp.Diff(json.RawMessage(before.State), json.RawMessage(res.State)); diff != "" {
		t.Fatalf("state changed by compression (-before +after):\n%s", diff)
	}
	assert.Equal(t, before.CurrentPlayer, after.CurrentPlayer)
	assert.Nil(t, after.Gameover)

	// compression is not player activity; idle sweeps still see the old move time
	assert.True(t, after.UpdatedAt.Equal(lastMove), "updatedAt moved to %v", after.UpdatedAt)
	assert.Equal(t, models.SessionActive, after.Status)
	require.NotNil(t, after.NudgedAt)
	assert.True(t, after.NudgedAt.Equal(nudged))
	idle, err := mem.IdleSessions(context.Background(), lastMove.Add(time.Minute))
	require.NoError(t, err)
	assert.Contains(t, idle, sess.ID)

	// short enough now; a second run leaves it alone
	sum, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Scanned)
}

func TestCompressionSkipsCorruptHistory(t *testing.T) {
	logger, hook := test.NewNullLogger()
	mem := store.NewMemory(0)
	job := NewJob(mem, logger, 10, 8)

	sess := longSession(t, 20)
	sess.MoveLog[2].Action = "warpDisc"
	good := longSession(t, 20)
	seed(t, mem, sess, good)

	sum, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Scanned)
	assert.Equal(t, 1, sum.Compressed)
	assert.Equal(t, 1, sum.Skipped)

	untouched := load(t, mem, sess.ID)
	assert.Len(t, untouched.MoveLog, 20)
	assert.Len(t, load(t, mem, good.ID).MoveLog, 8)

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestCompressionOnDefaults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory(0)
	job := NewJob(mem, logger, 0, 0)

	short := longSession(t, 50)
	long := longSession(t, 60)
	seed(t, mem, short, long)

	sum, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Compressed)
	assert.Len(t, load(t, mem, short.ID).MoveLog, 50)
	assert.Len(t, load(t, mem, long.ID).MoveLog, 50)
}
