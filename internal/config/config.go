package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
// Defaults suit local development.
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     slog.Level

	// Auth
	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	// Login throttling per username: LoginBurst attempts, then one more
	// every LoginRefill. Disabled when LoginBurst is zero.
	LoginBurst  int
	LoginRefill time.Duration

	// Administrator bootstrap. Skipped when AdminUsername is empty.
	AdminUsername string
	AdminPassword string
	AdminEmail    string

	// Spaces every new account is subscribed to, comma-separated.
	DefaultSpaces string

	// Events
	EventQueueSize int

	// RabbitMQ sink, enabled when RabbitMQURL is set.
	RabbitMQURL         string
	RabbitMQEventsQueue string

	// Redis sink, enabled when RedisAddr is set.
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisEventsChannel string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid int, using default", "key", key, "error", err, "default", def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration, using default", "key", key, "error", err, "default", def)
			return def
		}
		return d
	}
	return def
}

func getlevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			slog.Warn("invalid log level, using default", "key", key, "error", err, "default", def)
			return def
		}
		return level
	}
	return def
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:         getenv("PORT", "8080"),
		DatabasePath: getenv("DATABASE_PATH", "updog.db"),
		LogLevel:     getlevel("LOG_LEVEL", slog.LevelInfo),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getdur("JWT_TTL", 7*24*time.Hour),
		BcryptCost: getint("BCRYPT_COST", 12),

		LoginBurst:  getint("LOGIN_BURST", 10),
		LoginRefill: getdur("LOGIN_REFILL", 6*time.Second),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),

		DefaultSpaces: getenv("DEFAULT_SPACES", "general,announcements"),

		EventQueueSize: getint("EVENT_QUEUE_SIZE", 256),

		RabbitMQURL:         os.Getenv("RABBITMQ_URL"),
		RabbitMQEventsQueue: getenv("RABBITMQ_EVENTS_QUEUE", "updog.events"),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getint("REDIS_DB", 0),
		RedisEventsChannel: getenv("REDIS_EVENTS_CHANNEL", "updog.events"),
	}
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %v", c.JWTTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost))
	}
	if c.LoginBurst < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_BURST must not be negative, got %d", c.LoginBurst))
	}
	if c.LoginBurst > 0 && c.LoginRefill <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_REFILL must be positive, got %v", c.LoginRefill))
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required when ADMIN_USERNAME is set"))
	}
	if c.EventQueueSize < 1 {
		errs = append(errs, fmt.Errorf("EVENT_QUEUE_SIZE must be positive, got %d", c.EventQueueSize))
	}
	return errors.Join(errs...)
}

// DefaultSpaceNames returns the trimmed, de-duplicated DefaultSpaces list.
func (c *Config) DefaultSpaceNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(c.DefaultSpaces, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
