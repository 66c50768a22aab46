package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr            string
	LogLevel            slog.Level
	RedisURL            string
	ProfileBackend      string
	FirestoreProjectID  string
	ProfileCollection   string
	ProfileCacheTTL     time.Duration
	ProfileFetchTimeout time.Duration
	SessionKey          string
	TokenSecret         string
	TokenIssuer         string
	TokenTTL            time.Duration
	ToastDuration       time.Duration
	ClientIdleTTL       time.Duration
	PagesExt            string
	SecureCookies       bool
}

const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// LoadEnvFile loads path into the environment when it exists. Variables that
// are already set win over the file.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	if err := LoadEnvFile(getenv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:            ":" + getenv("PORT", "8080"),
		LogLevel:            getenvLevel("LOG_LEVEL", slog.LevelInfo),
		RedisURL:            getenv("REDIS_URL", ""),
		ProfileBackend:      strings.ToLower(getenv("PROFILE_BACKEND", BackendPostgres)),
		FirestoreProjectID:  getenv("FIRESTORE_PROJECT_ID", ""),
		ProfileCollection:   getenv("PROFILE_COLLECTION", "users"),
		ProfileCacheTTL:     getenvDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		ProfileFetchTimeout: getenvDuration("PROFILE_FETCH_TIMEOUT", 5*time.Second),
		SessionKey:          getenv("SESSION_KEY", ""),
		TokenSecret:         getenv("TOKEN_SECRET", ""),
		TokenIssuer:         getenv("TOKEN_ISSUER", "quizportal"),
		TokenTTL:            getenvDuration("TOKEN_TTL", 7*24*time.Hour),
		ToastDuration:       getenvDuration("TOAST_DURATION", 15*time.Second),
		ClientIdleTTL:       getenvDuration("CLIENT_IDLE_TTL", 30*time.Minute),
		PagesExt:            getenv("PAGES_EXT", ".page.html"),
		SecureCookies:       getenvBool("SECURE_COOKIES", false),
	}

	switch cfg.ProfileBackend {
	case BackendPostgres:
	case BackendFirestore:
		if cfg.FirestoreProjectID == "" {
			return Config{}, errors.New("FIRESTORE_PROJECT_ID is required for the firestore profile backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown PROFILE_BACKEND %q", cfg.ProfileBackend)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if val := os.Getenv(key); val != "" {
		if err := level.UnmarshalText([]byte(val)); err == nil {
			return level
		}
	}
	return fallback
}
