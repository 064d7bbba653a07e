// Package app wires the engine's services from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/minigames/internal/auth"
	"github.com/jason-s-yu/minigames/internal/compress"
	"github.com/jason-s-yu/minigames/internal/config"
	"github.com/jason-s-yu/minigames/internal/database"
	"github.com/jason-s-yu/minigames/internal/handlers"
	"github.com/jason-s-yu/minigames/internal/invite"
	"github.com/jason-s-yu/minigames/internal/middleware"
	"github.com/jason-s-yu/minigames/internal/notify"
	"github.com/jason-s-yu/minigames/internal/quota"
	"github.com/jason-s-yu/minigames/internal/session"
	"github.com/jason-s-yu/minigames/internal/store"
	"github.com/jason-s-yu/minigames/internal/worker"
	"github.com/sirupsen/logrus"
)

// App is the set of services one process runs against.
type App struct {
	Config   config.Config
	Logger   *logrus.Logger
	Store    store.Store
	Notifier notify.Notifier

	Gate       *quota.Gate
	Sessions   *session.Service
	Invites    *invite.Service
	Compressor *compress.Job

	// Queue is set when notifications go through Redis.
	Queue *notify.RedisQueue

	closers []func()
}

// New wires the services over an already-open store and collaborators.
func New(cfg config.Config, logger *logrus.Logger, st store.Store, notifier notify.Notifier, matcher invite.Matcher) *App {
	gate := quota.NewGate(st, logger, cfg.Rules.DailyPlayLimit, cfg.Rules.InviteCooldown)
	sessions := session.NewService(st, notifier, logger)
	invites := invite.NewService(st, gate, matcher, notifier, logger)
	sessions.OnGameOver = invites.HandleGameOver

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Notifier:   notifier,
		Gate:       gate,
		Sessions:   sessions,
		Invites:    invites,
		Compressor: compress.NewJob(st, logger, cfg.Rules.CompressionThreshold, cfg.Rules.CompressionKeep),
	}
}

// Open connects to Postgres and Redis and wires the services. Close releases both.
func Open(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.Connect(ctx, cfg.Postgres.URL(), cfg.Postgres.MaxConns, cfg.Rules.StoreRetryAttempts, logger)
	if err != nil {
		return nil, err
	}

	var (
		notifier notify.Notifier = notify.LogNotifier{Logger: logger}
		queue    *notify.RedisQueue
		closers  = []func(){db.Close}
	)
	if !cfg.Redis.Disabled {
		rdb, err := notify.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			db.Close()
			return nil, err
		}
		queue = notify.NewRedisQueue(rdb, cfg.Redis.Queue, logger)
		notifier = queue
		closers = append(closers, func() { rdb.Close() })
	} else {
		logger.Warn("redis disabled, notifications are only logged")
	}

	a := New(cfg, logger, db, notifier, database.NewMatcher(db.Pool()))
	a.Queue = queue
	a.closers = closers
	return a, nil
}

// Close releases every connection opened by Open, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Jobs returns the periodic sweeps.
func (a *App) Jobs() []worker.Job {
	return worker.Jobs(a.Config, a.Logger, a.Compressor, a.Invites, a.Sessions)
}

// Handler builds the HTTP API with logging and rate limiting.
func (a *App) Handler() (http.Handler, error) {
	if a.Config.HTTP.JWTPublicKey == "" {
		return nil, fmt.Errorf("JWT_PUBLIC_KEY is required")
	}
	key, err := auth.ParsePublicKeyHex(a.Config.HTTP.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse JWT_PUBLIC_KEY: %w", err)
	}
	return a.handler(auth.NewVerifier(key)), nil
}

func (a *App) handler(verifier *auth.Verifier) http.Handler {
	srv := &handlers.APIServer{
		Sessions:           a.Sessions,
		Invites:            a.Invites,
		Gate:               a.Gate,
		Verifier:           verifier,
		Logger:             a.Logger,
		MatchmakingTimeout: a.Config.Rules.MatchmakingTimeout,
	}
	mux := http.NewServeMux()
	srv.Routes(mux)

	limiter := middleware.NewRateLimiter(a.Config.HTTP.RateLimitRPS, a.Config.HTTP.RateLimitBurst, a.Logger)
	return middleware.LogMiddleware(a.Logger)(limiter.Middleware(mux))
}
