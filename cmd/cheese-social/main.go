package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-social/internal/account"
	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/command"
	appcfg "github.com/park285/cheese-social/internal/config"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/internal/irisfast"
	"github.com/park285/cheese-social/internal/msgcat"
	"github.com/park285/cheese-social/internal/obslog"
	"github.com/park285/cheese-social/internal/relations"
	"github.com/park285/cheese-social/internal/store/memstore"
	"github.com/park285/cheese-social/internal/store/mongostore"
	"github.com/park285/cheese-social/internal/store/pgstore"
	"github.com/park285/cheese-social/internal/store/redisstore"
	"github.com/park285/cheese-social/internal/sweep"
	"go.uber.org/zap"
)

// backend bundles one store implementation behind the three interfaces.
type backend struct {
	challenges challenge.Store
	friends    friend.Store
	users      account.Oracle
	seed       func(ctx context.Context, names ...string) error
	close      func() error
}

func openBackend(ctx context.Context, cfg *appcfg.AppConfig) (*backend, error) {
	switch cfg.StoreBackend {
	case appcfg.BackendPostgres:
		st, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return &backend{challenges: st, friends: st, users: st, seed: st.AddUsers, close: st.Close}, nil
	case appcfg.BackendMongo:
		st, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return &backend{challenges: st, friends: st, users: st, seed: st.AddUsers, close: st.Close}, nil
	case appcfg.BackendMemory:
		st := memstore.New()
		seed := func(_ context.Context, names ...string) error {
			st.AddUsers(names...)
			return nil
		}
		return &backend{challenges: st, friends: st, users: st, seed: seed, close: func() error { return nil }}, nil
	default:
		st, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &backend{challenges: st, friends: st, users: st, seed: st.AddUsers, close: st.Close}, nil
	}
}

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	octx, ocancel := context.WithTimeout(ctx, 15*time.Second)
	be, err := openBackend(octx, cfg)
	if err == nil && len(cfg.SeedUsers) > 0 {
		err = be.seed(octx, cfg.SeedUsers...)
	}
	ocancel()
	if err != nil {
		logger.Fatal("store_init_error", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer func() { _ = be.close() }()
	logger.Info("store_ready", zap.String("backend", cfg.StoreBackend), zap.Int("seeded_users", len(cfg.SeedUsers)))

	cat, err := msgcat.New(cfg.MessagesLocale, cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_init_error", zap.Error(err))
	}

	challenges := challenge.NewMachine(be.challenges, be.users, challenge.Options{
		TTL:       cfg.ChallengeTTL,
		ListLimit: cfg.ChallengeListLimit,
	})
	friends := friend.NewMachine(be.friends, be.users, nil)
	svc := relations.New(challenges, friends, cat)

	go sweep.New(challenges, cfg.ExpirySweep).Run(ctx)

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers))
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})

	out := irisfast.NewEgress(cfg.EgressMode, false, client, ws, logger)
	router := command.NewRouter(cfg.BotPrefix, svc, cat, out, cfg.AllowedRooms)
	unlisten := router.Listen(ctx, ws)
	defer unlisten()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws_connect_error", zap.Error(err))
	}
	cancel()
	logger.Info("bot_started", zap.String("prefix", cfg.BotPrefix), zap.String("egress", cfg.EgressMode))

	<-ctx.Done()
	logger.Info("bot_stopping")
	_ = ws.Close(context.Background())
}
