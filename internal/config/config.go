package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/obslog"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string
	EgressMode  string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	StoreBackend string
	RedisURL     string
	DatabaseURL  string
	MongoURI     string
	MongoDB      string

	ChallengeTTL       time.Duration
	ChallengeListLimit int
	ExpirySweep        time.Duration

	// SeedUsers are registered with the identity store at start-up.
	SeedUsers []string

	MessagesLocale string
	MessagesDir    string
	AllowedRooms   []string

	Log obslog.Options
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EgressMode:         "auto",
		StoreBackend:       BackendRedis,
		MongoDB:            "cheese_social",
		ChallengeTTL:       time.Hour,
		ChallengeListLimit: 50,
	}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE"))); v != "" {
		cfg.EgressMode = v
	}
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); v != "" {
		cfg.StoreBackend = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MongoURI = strings.TrimSpace(os.Getenv("MONGO_URI"))
	if v := strings.TrimSpace(os.Getenv("MONGO_DB")); v != "" {
		cfg.MongoDB = v
	}

	if v := strings.TrimSpace(os.Getenv("CHALLENGE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChallengeTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHALLENGE_LIST_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChallengeListLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("EXPIRY_SWEEP_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExpirySweep = time.Duration(n) * time.Second
		}
	}

	cfg.SeedUsers = splitList(os.Getenv("SEED_USERS"))
	cfg.MessagesLocale = strings.TrimSpace(os.Getenv("MESSAGES_LOCALE"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.AllowedRooms = splitList(os.Getenv("ALLOWED_ROOMS"))
	cfg.Log = obslog.OptionsFromEnv()

	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis store")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGO_URI is required for the mongo store")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
