// Package compress folds old move-log entries into a session's base snapshot so
// stored logs stay bounded.
package compress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/game"
	"github.com/jason-s-yu/minigames/internal/models"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	DefaultThreshold  = 50
	DefaultKeepRecent = 50
)

// errSkip aborts a session's compression without writing.
var errSkip = errors.New("compression skipped")

// Job compresses every session whose log is longer than Threshold, keeping the last
// KeepRecent entries verbatim.
type Job struct {
	store      store.Store
	logger     *logrus.Logger
	threshold  int
	keepRecent int
}

// Summary reports one run.
type Summary struct {
	Scanned    int `json:"scanned"`
	Compressed int `json:"compressed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func NewJob(st store.Store, logger *logrus.Logger, threshold, keepRecent int) *Job {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	return &Job{store: st, logger: logger, threshold: threshold, keepRecent: keepRecent}
}

// Run sweeps all long sessions. A failure on one session is logged and the sweep
// moves on.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	ids, err := j.store.SessionsWithLongLogs(ctx, j.threshold)
	if err != nil {
		return Summary{}, fmt.Errorf("list long sessions: %w", err)
	}

	var sum Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Scanned++
		err := j.Compress(ctx, id)
		switch {
		case err == nil:
			sum.Compressed++
		case errors.Is(err, errSkip):
			sum.Skipped++
		default:
			sum.Failed++
			j.logger.WithFields(logrus.Fields{"session_id": id, "error": err}).Error("compression failed")
		}
	}
	j.logger.WithFields(logrus.Fields{
		"scanned":    sum.Scanned,
		"compressed": sum.Compressed,
		"skipped":    sum.Skipped,
		"failed":     sum.Failed,
	}).Info("compression sweep done")
	return sum, nil
}

// Compress rewrites one session as base' = replay(base, older) and log' = recent.
// Sessions whose older history does not replay cleanly are left untouched.
func (j *Job) Compress(ctx context.Context, id uuid.UUID) error {
	return j.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if len(sess.MoveLog) <= j.threshold {
			return errSkip
		}
		def, err := game.Lookup(sess.GameID)
		if err != nil {
			return err
		}

		cut := len(sess.MoveLog) - j.keepRecent
		if cut <= 0 {
			return errSkip
		}
		older := sess.MoveLog[:cut]
		recent := append([]models.MoveRecord(nil), sess.MoveLog[cut:]...)

		folded, err := def.Replay(sess.Base, older, game.Tolerant)
		if err != nil {
			return fmt.Errorf("replay older entries: %w", err)
		}
		log := j.logger.WithFields(logrus.Fields{"session_id": id, "game_id": sess.GameID})
		if !folded.Valid {
			log.Warn("history does not replay cleanly, skipping compression")
			return errSkip
		}

		full, err := def.Replay(sess.Base, sess.MoveLog, game.Tolerant)
		if err != nil {
			return fmt.Errorf("replay full log: %w", err)
		}
		after, err := def.Replay(folded.Snapshot(), recent, game.Tolerant)
		if err != nil {
			return fmt.Errorf("replay recent entries: %w", err)
		}
		if !game.Equal(full, after) {
			log.Warn("compressed replay diverges from full replay, skipping")
			return errSkip
		}

		sess.Record(folded.Snapshot(), recent, after.CurrentPlayer, after.Gameover, sess.UpdatedAt)
		log.WithFields(logrus.Fields{"folded": len(older), "kept": len(recent)}).Info("session compressed")
		return tx.PutSession(ctx, sess)
	})
}
