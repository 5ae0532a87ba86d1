// Package config loads process configuration from the environment (and an
// optional .env file for local development), following the teacher's
// getEnv/getEnvAsInt convention and the ${VAR}/${VAR:-default}/${VAR:?error}
// substitution rules ported from the original config loader.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Spotify engine credentials
	SpotifyClientID     string
	SpotifyClientSecret string

	// Genius engine credentials
	GeniusAPIToken string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string

	// Redis (backs C4 Cache and C5 Rate limiter)
	RedisURL      string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Cache (C4)
	CacheDefaultTTL time.Duration

	// Dispatcher (C8)
	DispatcherOverallDeadline time.Duration
	DispatcherSoftTimeout     time.Duration

	// Interaction log (C11) — false means the process runs with NoopSink
	InteractionLogEnabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	redisURL, err := resolveEnv("REDIS_URL")
	if err != nil {
		return nil, err
	}
	if redisURL == "" {
		if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
			redisDB := getEnvAsInt("REDIS_DB", 0)
			redisPassword := os.Getenv("REDIS_PASSWORD")

			if redisPassword != "" {
				if redisDB != 0 {
					redisURL = fmt.Sprintf("redis://:%s@%s/%d", redisPassword, redisAddr, redisDB)
				} else {
					redisURL = fmt.Sprintf("redis://:%s@%s", redisPassword, redisAddr)
				}
			} else {
				if redisDB != 0 {
					redisURL = fmt.Sprintf("redis://%s/%d", redisAddr, redisDB)
				} else {
					redisURL = "redis://" + redisAddr
				}
			}
		} else {
			redisURL = "redis://localhost:6379"
		}
	}

	databaseURL, err := resolveEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		GeniusAPIToken: os.Getenv("GENIUS_API_TOKEN"),

		DatabaseURL: databaseURL,
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnvAsInt("DB_PORT", 5432),
		DBName:      getEnv("DB_NAME", "musicsearch"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBSSLMode:   getEnv("DB_SSL_MODE", "prefer"),

		RedisURL:      redisURL,
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvAsInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		CacheDefaultTTL: getEnvAsDuration("CACHE_DEFAULT_TTL", 15*time.Minute),

		DispatcherOverallDeadline: getEnvAsDuration("DISPATCHER_OVERALL_DEADLINE", 15*time.Second),
		DispatcherSoftTimeout:     getEnvAsDuration("DISPATCHER_SOFT_TIMEOUT", 10*time.Second),

		InteractionLogEnabled: getEnvAsBool("INTERACTION_LOG_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate enforces only what the process itself cannot run without.
// Missing engine credentials (Spotify, Genius) never fail Load — an engine
// with RequiresAPIKey and no secret is simply reported disabled by its
// adapter constructor and excluded from the Registry's Enabled() set.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPassword == "" {
		return fmt.Errorf("either DATABASE_URL or DB_PASSWORD must be provided")
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

var substitutionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolveEnv reads key from the environment and expands any ${VAR},
// ${VAR:-default}, or ${VAR:?error} references nested inside its value,
// the same three forms the original config loader supported. A value with
// no substitution syntax passes through unchanged.
func resolveEnv(key string) (string, error) {
	return expandEnvVars(os.Getenv(key))
}

func expandEnvVars(value string) (string, error) {
	var expandErr error
	expanded := substitutionPattern.ReplaceAllStringFunc(value, func(match string) string {
		if expandErr != nil {
			return match
		}
		expr := match[2 : len(match)-1]

		if idx := strings.Index(expr, ":?"); idx >= 0 {
			varName, errMsg := expr[:idx], expr[idx+2:]
			val, ok := os.LookupEnv(varName)
			if !ok || val == "" {
				expandErr = fmt.Errorf("required environment variable %s is not set: %s", varName, errMsg)
				return match
			}
			return val
		}

		if idx := strings.Index(expr, ":-"); idx >= 0 {
			varName, def := expr[:idx], expr[idx+2:]
			if val, ok := os.LookupEnv(varName); ok && val != "" {
				return val
			}
			return def
		}

		varName := expr
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}
