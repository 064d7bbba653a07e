package worker

import (
	"context"
	"time"

	"github.com/jason-s-yu/minigames/internal/compress"
	"github.com/jason-s-yu/minigames/internal/config"
	"github.com/jason-s-yu/minigames/internal/invite"
	"github.com/jason-s-yu/minigames/internal/session"
	"github.com/sirupsen/logrus"
)

// Job names, shared with the gamectl subcommands.
const (
	JobCompress   = "compress"
	JobRemind     = "remind"
	JobNudge      = "nudge"
	JobStartReady = "start-ready"
)

// Jobs builds the standard sweeps from the configured schedule.
func Jobs(cfg config.Config, logger *logrus.Logger, compressor *compress.Job, invites *invite.Service, sessions *session.Service) []Job {
	return []Job{
		{
			Name:  JobCompress,
			Every: cfg.Schedule.CompressEvery,
			Run: func(ctx context.Context) error {
				_, err := compressor.Run(ctx)
				return err
			},
		},
		{
			Name:  JobRemind,
			Every: cfg.Schedule.RemindEvery,
			Run:   countJob(logger, JobRemind, func(ctx context.Context) (int, error) { return invites.RemindPending(ctx, cfg.Rules.InviteReminderAfter) }),
		},
		{
			Name:  JobNudge,
			Every: cfg.Schedule.NudgeEvery,
			Run:   countJob(logger, JobNudge, func(ctx context.Context) (int, error) { return sessions.NudgeIdle(ctx, cfg.Rules.IdleNudgeAfter) }),
		},
		{
			Name:  JobStartReady,
			Every: cfg.Schedule.StartReadyEvery,
			Run:   countJob(logger, JobStartReady, invites.StartReady),
		},
	}
}

func countJob(logger *logrus.Logger, name string, fn func(ctx context.Context) (int, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		n, err := fn(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.WithFields(logrus.Fields{"job": name, "count": n, "duration": time.Since(start)}).Info("sweep finished")
		}
		return nil
	}
}
