package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceRules
	Worker     WorkerConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration for the admin API surface.
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AttendanceRules are the business parameters feeding the time computation
// engine. They are read once at startup and never mutated afterwards.
type AttendanceRules struct {
	Timezone                 string
	GraceInMinutes           int
	GraceOutMinutes          int
	RoundingMinutes          int
	OvertimeThresholdMinutes int
	NightShiftStartHour      int
	NightShiftEndHour        int
}

// Location resolves the configured IANA timezone, falling back to UTC.
func (r AttendanceRules) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkerConfig holds processing queue tuning.
type WorkerConfig struct {
	Count            int
	MaxAttempts      int
	BaseBackoff      time.Duration
	HeartbeatTimeout time.Duration
	PollInterval     time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine in production; real env vars take over.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance-engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	rules, err := loadAttendanceRules()
	if err != nil {
		return nil, err
	}
	config.Attendance = rules

	worker, err := loadWorkerConfig()
	if err != nil {
		return nil, err
	}
	config.Worker = worker

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAttendanceRules() (AttendanceRules, error) {
	rules := AttendanceRules{
		Timezone: getEnv("ATTENDANCE_TIMEZONE", "Asia/Jakarta"),
	}

	intFields := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"GRACE_IN_MINUTES", 5, &rules.GraceInMinutes},
		{"GRACE_OUT_MINUTES", 5, &rules.GraceOutMinutes},
		{"ROUNDING_MINUTES", 5, &rules.RoundingMinutes},
		{"OVERTIME_THRESHOLD_MINUTES", 15, &rules.OvertimeThresholdMinutes},
		{"NIGHT_SHIFT_START_HOUR", 22, &rules.NightShiftStartHour},
		{"NIGHT_SHIFT_END_HOUR", 6, &rules.NightShiftEndHour},
	}
	for _, f := range intFields {
		v, err := strconv.Atoi(getEnv(f.key, strconv.Itoa(f.fallback)))
		if err != nil {
			return AttendanceRules{}, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	if _, err := time.LoadLocation(rules.Timezone); err != nil {
		return AttendanceRules{}, fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}
	if rules.RoundingMinutes < 1 {
		return AttendanceRules{}, fmt.Errorf("ROUNDING_MINUTES must be at least 1")
	}
	if rules.NightShiftStartHour < 0 || rules.NightShiftStartHour > 23 ||
		rules.NightShiftEndHour < 0 || rules.NightShiftEndHour > 23 {
		return AttendanceRules{}, fmt.Errorf("night shift hours must be within 0-23")
	}

	return rules, nil
}

func loadWorkerConfig() (WorkerConfig, error) {
	count, err := strconv.Atoi(getEnv("WORKER_COUNT", "4"))
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid WORKER_COUNT: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("JOB_MAX_ATTEMPTS", "5"))
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid JOB_MAX_ATTEMPTS: %w", err)
	}

	baseBackoff, err := time.ParseDuration(getEnv("JOB_BASE_BACKOFF", "30s"))
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid JOB_BASE_BACKOFF: %w", err)
	}

	heartbeatTimeout, err := time.ParseDuration(getEnv("JOB_HEARTBEAT_TIMEOUT", "5m"))
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid JOB_HEARTBEAT_TIMEOUT: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("JOB_POLL_INTERVAL", "2s"))
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid JOB_POLL_INTERVAL: %w", err)
	}

	return WorkerConfig{
		Count:            count,
		MaxAttempts:      maxAttempts,
		BaseBackoff:      baseBackoff,
		HeartbeatTimeout: heartbeatTimeout,
		PollInterval:     pollInterval,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
