// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/hanabi/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is everything the server and historian read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	Rules        game.Rules
	EnforceTurns bool

	// TablePassword gates CONNECTION_REQUEST when set.
	TablePassword string
	// TokenExpire is the seat token lifetime; 0 means tokens never expire.
	TokenExpire time.Duration

	RedisAddr string // empty disables the action log
	RedisDB   int
	QueueName string

	DatabaseURL string

	AllowedOrigins []string

	HistorianBatchSize int
	HistorianFlush     time.Duration
	InactivityTimeout  time.Duration
}

// DefaultQueueName is the redis list the action log is pushed to.
const DefaultQueueName = "hanabi_actions"

// Load reads the environment. Unset variables fall back to defaults; set but
// malformed ones are an error.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "4444"),
		TablePassword:  os.Getenv("TABLE_PASSWORD"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		QueueName:      getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
	var err error

	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	r := game.DefaultRules()
	ints := []struct {
		key string
		dst *int
	}{
		{"HINT_TOKENS", &r.HintTokens},
		{"ERROR_TOKENS", &r.ErrorTokens},
		{"HAND_SIZE", &r.HandSize},
		{"LARGE_TABLE_HAND_SIZE", &r.LargeTableHandSize},
		{"LARGE_TABLE_THRESHOLD", &r.LargeTableThreshold},
		{"MIN_PLAYERS", &r.MinPlayers},
		{"MAX_PLAYERS", &r.MaxPlayers},
		{"REDIS_DB", &cfg.RedisDB},
	}
	for _, f := range ints {
		if *f.dst, err = getEnvInt(f.key, *f.dst); err != nil {
			return Config{}, err
		}
	}
	if r.EndOnPerfectScore, err = getEnvBool("END_ON_PERFECT_SCORE", r.EndOnPerfectScore); err != nil {
		return Config{}, err
	}
	if err := r.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid rules: %w", err)
	}
	cfg.Rules = r

	if cfg.EnforceTurns, err = getEnvBool("ENFORCE_TURNS", true); err != nil {
		return Config{}, err
	}
	if cfg.TokenExpire, err = parseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return Config{}, err
	}

	if cfg.HistorianBatchSize, err = getEnvPositiveInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return Config{}, err
	}
	flushMs, err := getEnvPositiveInt("HISTORIAN_FLUSH_MS", 500)
	if err != nil {
		return Config{}, err
	}
	cfg.HistorianFlush = time.Duration(flushMs) * time.Millisecond
	inactivitySec, err := getEnvPositiveInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)
	if err != nil {
		return Config{}, err
	}
	cfg.InactivityTimeout = time.Duration(inactivitySec) * time.Second

	return cfg, nil
}

// Addr is the listen address for the http server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// parseTokenExpireTime accepts a Go duration, or "never", "0" or "" for no expiry.
func parseTokenExpireTime(s string) (time.Duration, error) {
	if s == "" || s == "never" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, s)
	}
	return v, nil
}

// getEnvPositiveInt is getEnvInt for counts and intervals, which must be > 0.
func getEnvPositiveInt(key string, def int) (int, error) {
	v, err := getEnvInt(key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, v)
	}
	return v, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, s)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
