package database_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/database"
	"github.com/jason-s-yu/minigames/internal/database/migrations"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/quota"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var repo *database.Store

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		// no container runtime; every test skips
		fmt.Fprintln(os.Stderr, "postgres container unavailable:", err)
		return m.Run()
	}
	defer postgresContainer.Terminate(ctx)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	if err := migrations.Migrate(connString, logger); err != nil {
		panic(err)
	}
	repo, err = database.Connect(ctx, connString, 20, 50, logger)
	if err != nil {
		panic(err)
	}
	defer repo.Close()

	return m.Run()
}

func requireRepo(t *testing.T) {
	t.Helper()
	if repo == nil {
		t.Skip("postgres container unavailable")
	}
}

func getSession(t *testing.T, id uuid.UUID) *models.GameSession {
	t.Helper()
	var sess *models.GameSession
	require.NoError(t, repo.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		sess, err = tx.GetSession(ctx, id)
		return err
	}))
	return sess
}

func TestSessionRoundTrip(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	base, err := game.TicTacToe.Initial()
	require.NoError(t, err)
	args, err := game.EncodeArgs(4)
	require.NoError(t, err)

	u1, u2 := uuid.New(), uuid.New()
	sess := models.NewWaitingSession(uuid.New(), "tictactoe", u1, base, now)
	sess.Players[1] = u2
	sess.Status = models.SessionActive
	sess.MoveLog = []models.MoveRecord{{Action: "clickCell", Player: models.Seat0, Args: args, At: now}}
	sess.CurrentPlayer = models.Seat1

	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutSession(ctx, sess)
	}))

	got := getSession(t, sess.ID)
	assert.Equal(t, sess.Players, got.Players)
	assert.Equal(t, models.SessionActive, got.Status)
	assert.Equal(t, models.Seat1, got.CurrentPlayer)
	require.Len(t, got.MoveLog, 1)
	assert.Equal(t, "clickCell", got.MoveLog[0].Action)
	assert.Nil(t, got.Gameover)
	assert.JSONEq(t, string(sess.Base.State), string(got.Base.State))

	ids, err := repo.SessionsWithLongLogs(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, ids, sess.ID)

	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteSession(ctx, sess.ID)
	}))
	err = repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.GetSession(ctx, sess.ID)
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindWaitingSessionSkipsOwnAndFilled(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	gameID := "nim"
	base, err := game.Nim.Initial()
	require.NoError(t, err)

	mine, other := uuid.New(), uuid.New()
	now := time.Now().UTC()
	own := models.NewWaitingSession(uuid.New(), gameID, mine, base, now.Add(-time.Hour))
	open := models.NewWaitingSession(uuid.New(), gameID, other, base, now.Add(-time.Hour).Add(time.Second))
	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutSession(ctx, own); err != nil {
			return err
		}
		return tx.PutSession(ctx, open)
	}))

	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		found, err := tx.FindWaitingSession(ctx, gameID, mine)
		if err != nil {
			return err
		}
		require.NotNil(t, found)
		assert.NotEqual(t, mine, found.Players[0])
		return nil
	}))
}

func TestConcurrentQuotaIncrements(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	gate := quota.NewGate(repo, logger, 5, time.Minute)

	uid := uuid.New()
	const players = 10
	var wg sync.WaitGroup
	errs := make([]error, players)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = gate.RecordGamePlayed(ctx, uid)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	}
	assert.Equal(t, 5, ok)

	var q *models.UserQuota
	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		q, err = tx.GetQuota(ctx, uid)
		return err
	}))
	assert.Equal(t, 5, q.DailyPlayCount)
}

func TestProfileDefaultsAndPremium(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProfile(ctx, uid)
		assert.False(t, p.Premium)
		assert.Equal(t, "UTC", p.TimeZone)
		return err
	}))

	require.NoError(t, repo.PutProfile(ctx, models.UserProfile{ID: uid, Premium: true, TimeZone: "America/New_York"}))
	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProfile(ctx, uid)
		assert.True(t, p.Premium)
		assert.Equal(t, "America/New_York", p.TimeZone)
		return err
	}))
}

func TestInviteRoundTripAndSweeps(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Microsecond)
	from, to := uuid.New(), uuid.New()
	inv := &models.GameInvite{
		ID:         uuid.New(),
		From:       from,
		To:         to,
		GameID:     "connectfour",
		Status:     models.InvitePending,
		AcceptedBy: []uuid.UUID{from},
		CreatedAt:  old,
		UpdatedAt:  old,
	}
	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutInvite(ctx, inv)
	}))

	ids, err := repo.PendingInvitesBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Contains(t, ids, inv.ID)

	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetInvite(ctx, inv.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, []uuid.UUID{from}, got.AcceptedBy)
		got.AcceptedBy = append(got.AcceptedBy, to)
		got.Status = models.InviteReady
		got.GameSessionID = &got.ID
		return tx.PutInvite(ctx, got)
	}))

	ready, err := repo.InvitesWithStatus(ctx, models.InviteReady)
	require.NoError(t, err)
	assert.Contains(t, ready, inv.ID)
	pending, err := repo.PendingInvitesBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, pending, inv.ID)
}

func TestConflictingWritesRetry(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	base, err := game.Nim.Initial()
	require.NoError(t, err)
	sess := models.NewWaitingSession(uuid.New(), "nim", uuid.New(), base, time.Now().UTC())
	require.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutSession(ctx, sess)
	}))

	// each writer appends one record; lost updates would leave fewer than writers
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
				cur, err := tx.GetSession(ctx, sess.ID)
				if err != nil {
					return err
				}
				cur.MoveLog = append(cur.MoveLog, models.MoveRecord{Action: "take", Player: models.Seat0})
				return tx.PutSession(ctx, cur)
			}))
		}()
	}
	wg.Wait()
	assert.Len(t, getSession(t, sess.ID).MoveLog, writers)
}

func TestMatcherRequiresMutualLike(t *testing.T) {
	requireRepo(t)
	ctx := context.Background()
	m := database.NewMatcher(repo.Pool())
	a, b := uuid.New(), uuid.New()

	require.NoError(t, m.Like(ctx, a, b))
	id, err := m.CreateMatchIfMutualLike(ctx, a, b)
	require.NoError(t, err)
	assert.Nil(t, id)

	require.NoError(t, m.Like(ctx, b, a))
	first, err := m.CreateMatchIfMutualLike(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := m.CreateMatchIfMutualLike(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)

	match, err := m.GetMatch(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, *first, match.ID)
}
