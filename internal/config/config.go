// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Postgres uses the same variable names as the rest of the platform's services.
type Postgres struct {
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE" envDefault:"minigames"`
	SSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// URL renders the connection string.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type Redis struct {
	Addr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB    int    `env:"REDIS_DB" envDefault:"0"`
	Queue string `env:"NOTIFY_QUEUE_NAME" envDefault:"minigame_notifications"`
	// Disabled routes notifications to the log instead of Redis.
	Disabled bool `env:"REDIS_DISABLED" envDefault:"false"`
}

type Rules struct {
	DailyPlayLimit       int           `env:"DAILY_PLAY_LIMIT" envDefault:"5"`
	InviteCooldown       time.Duration `env:"INVITE_COOLDOWN" envDefault:"60s"`
	CompressionThreshold int           `env:"COMPRESSION_THRESHOLD" envDefault:"50"`
	CompressionKeep      int           `env:"COMPRESSION_KEEP" envDefault:"50"`
	InviteReminderAfter  time.Duration `env:"INVITE_REMINDER_AFTER" envDefault:"6h"`
	IdleNudgeAfter       time.Duration `env:"IDLE_NUDGE_AFTER" envDefault:"24h"`
	MatchmakingTimeout   time.Duration `env:"MATCHMAKING_TIMEOUT" envDefault:"30s"`
	StoreRetryAttempts   int           `env:"STORE_RETRY_ATTEMPTS" envDefault:"5"`
}

type Schedule struct {
	CompressEvery   time.Duration `env:"COMPRESS_EVERY" envDefault:"24h"`
	RemindEvery     time.Duration `env:"REMIND_EVERY" envDefault:"1h"`
	NudgeEvery      time.Duration `env:"NUDGE_EVERY" envDefault:"24h"`
	StartReadyEvery time.Duration `env:"START_READY_EVERY" envDefault:"1m"`
}

type HTTP struct {
	Port           string  `env:"PORT" envDefault:"8080"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	// JWTPublicKey is the hex-encoded ed25519 key of the social app's token issuer.
	JWTPublicKey string `env:"JWT_PUBLIC_KEY"`
}

// Config is the full service configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres Postgres
	Redis    Redis
	Rules    Rules
	Schedule Schedule
	HTTP     HTTP
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
