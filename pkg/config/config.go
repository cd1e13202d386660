package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Dedup backend selectors for the reminder sent-marker cache.
const (
	DedupBackendMemory = "memory"
	DedupBackendRedis  = "redis"
)

// Reminder sweep modes.
const (
	ReminderModeRolling  = "rolling-24h"
	ReminderModeCalendar = "calendar-tomorrow"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Reminders     RemindersConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RemindersConfig governs the reminder sweep engine.
type RemindersConfig struct {
	Enabled           bool
	Mode              string
	Timezone          string
	SweepInterval     time.Duration
	SweepDeadline     time.Duration
	WorkerConcurrency int
	EmailTimeout      time.Duration
	DedupBackend      string
	DedupTTL          time.Duration
}

// NotificationsConfig tunes best-effort delivery side channels.
type NotificationsConfig struct {
	QueueWorkers int
	QueueBuffer  int
	MaxRetries   int
	RetryDelay   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reminders = RemindersConfig{
		Enabled:           v.GetBool("REMINDERS_ENABLED"),
		Mode:              normalizeMode(v.GetString("REMINDERS_MODE")),
		Timezone:          v.GetString("REMINDERS_TIMEZONE"),
		SweepInterval:     parseDuration(v.GetString("REMINDERS_SWEEP_INTERVAL"), 15*time.Minute),
		SweepDeadline:     parseDuration(v.GetString("REMINDERS_SWEEP_DEADLINE"), 5*time.Minute),
		WorkerConcurrency: v.GetInt("REMINDERS_WORKER_CONCURRENCY"),
		EmailTimeout:      parseDuration(v.GetString("REMINDERS_EMAIL_TIMEOUT"), 10*time.Second),
		DedupBackend:      v.GetString("REMINDERS_DEDUP_BACKEND"),
		DedupTTL:          parseDuration(v.GetString("REMINDERS_DEDUP_TTL"), 48*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		QueueWorkers: v.GetInt("NOTIFICATIONS_QUEUE_WORKERS"),
		QueueBuffer:  v.GetInt("NOTIFICATIONS_QUEUE_BUFFER"),
		MaxRetries:   v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 2*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coachdesk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REMINDERS_ENABLED", false)
	v.SetDefault("REMINDERS_MODE", ReminderModeRolling)
	v.SetDefault("REMINDERS_TIMEZONE", "UTC")
	v.SetDefault("REMINDERS_SWEEP_INTERVAL", "15m")
	v.SetDefault("REMINDERS_SWEEP_DEADLINE", "5m")
	v.SetDefault("REMINDERS_WORKER_CONCURRENCY", 4)
	v.SetDefault("REMINDERS_EMAIL_TIMEOUT", "10s")
	v.SetDefault("REMINDERS_DEDUP_BACKEND", DedupBackendMemory)
	v.SetDefault("REMINDERS_DEDUP_TTL", "48h")

	v.SetDefault("NOTIFICATIONS_QUEUE_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_QUEUE_BUFFER", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "2s")
}

func normalizeMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ReminderModeCalendar:
		return ReminderModeCalendar
	default:
		return ReminderModeRolling
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
