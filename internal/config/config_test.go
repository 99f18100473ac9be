package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("IRIS_BASE_URL", "http://iris:3000")
	t.Setenv("IRIS_WS_URL", "ws://iris:3000/ws")
	t.Setenv("BOT_PREFIX", "!")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "memory")
	cfg, err := Load()
	if err != nil { t.Fatalf("Load: %v", err) }
	if cfg.ChallengeTTL != time.Hour { t.Fatalf("ttl=%v", cfg.ChallengeTTL) }
	if cfg.ChallengeListLimit != 50 { t.Fatalf("limit=%d", cfg.ChallengeListLimit) }
	if cfg.ExpirySweep != 0 { t.Fatalf("sweep should be disabled by default, got %v", cfg.ExpirySweep) }
	if cfg.EgressMode != "auto" { t.Fatalf("egress=%q", cfg.EgressMode) }
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CHALLENGE_TTL_SEC", "120")
	t.Setenv("CHALLENGE_LIST_LIMIT", "abc")
	t.Setenv("EXPIRY_SWEEP_SEC", "30")
	t.Setenv("ALLOWED_ROOMS", " room1, ,room2 ")
	t.Setenv("SEED_USERS", "alice,bob")
	t.Setenv("MESSAGES_LOCALE", " ko ")
	cfg, err := Load()
	if err != nil { t.Fatalf("Load: %v", err) }
	if cfg.StoreBackend != BackendRedis { t.Fatalf("backend=%q", cfg.StoreBackend) }
	if cfg.ChallengeTTL != 2*time.Minute { t.Fatalf("ttl=%v", cfg.ChallengeTTL) }
	if cfg.ChallengeListLimit != 50 { t.Fatalf("invalid limit should keep default, got %d", cfg.ChallengeListLimit) }
	if cfg.ExpirySweep != 30*time.Second { t.Fatalf("sweep=%v", cfg.ExpirySweep) }
	if len(cfg.AllowedRooms) != 2 || cfg.AllowedRooms[1] != "room2" { t.Fatalf("rooms=%v", cfg.AllowedRooms) }
	if len(cfg.SeedUsers) != 2 { t.Fatalf("seed=%v", cfg.SeedUsers) }
	if cfg.MessagesLocale != "ko" { t.Fatalf("locale=%q", cfg.MessagesLocale) }
}

func TestLoadRequiresBackendURL(t *testing.T) {
	setRequired(t)
	for _, backend := range []string{"redis", "postgres", "mongo"} {
		t.Setenv("STORE_BACKEND", backend)
		t.Setenv("REDIS_URL", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("MONGO_URI", "")
		if _, err := Load(); err == nil {
			t.Fatalf("%s: expected error without connection url", backend)
		}
	}
	t.Setenv("STORE_BACKEND", "sqlite")
	if _, err := Load(); err == nil { t.Fatalf("expected error for unknown backend") }
}

func TestLoadRequiresIris(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("IRIS_BASE_URL", "")
	t.Setenv("IRIS_WS_URL", "ws://x")
	t.Setenv("BOT_PREFIX", "!")
	if _, err := Load(); err == nil { t.Fatalf("expected IRIS_BASE_URL error") }
}
