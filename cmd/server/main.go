package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // fatal startup errors before the structured logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/auth-session-engine/internal/config"            // configuration loader
	"github.com/iliyamo/auth-session-engine/internal/database"          // MySQL pool and migrations
	"github.com/iliyamo/auth-session-engine/internal/handler"           // HTTP handlers
	"github.com/iliyamo/auth-session-engine/internal/logging"           // structured logging
	"github.com/iliyamo/auth-session-engine/internal/obs"               // Prometheus metrics
	"github.com/iliyamo/auth-session-engine/internal/queue"             // security event consumer
	"github.com/iliyamo/auth-session-engine/internal/ratelimit"         // admission control
	"github.com/iliyamo/auth-session-engine/internal/repository"        // MySQL stores
	"github.com/iliyamo/auth-session-engine/internal/repository/memory" // in-process stores
	"github.com/iliyamo/auth-session-engine/internal/router"            // route registration
	"github.com/iliyamo/auth-session-engine/internal/service"           // session lifecycle engine
	"github.com/iliyamo/auth-session-engine/internal/utils"             // token codec and password hashing
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	users    service.UserStore
	tokens   service.TokenStore
	sessions service.SessionStore
	db       *sql.DB
}

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), nil)
	tracker := service.NewSessionTracker(st.sessions, nil)
	engine := service.NewEngine(st.users, st.tokens, tracker, codec,
		utils.NewBcryptHasher(cfg.BcryptCost),
		service.WithLogger(logger),
		service.WithNotifier(service.NewNotifier(cfg.AMQPURL, logger)),
	)

	if cfg.AuditConsumer && cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "audit consumer stopped", "error", err)
			}
		}()
	}

	metrics := obs.New()
	metrics.SetBuildInfo(version, commit)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	router.Use(e, router.Chain{
		Log:             logger,
		Metrics:         metrics,
		Limiter:         newLimiter(cfg, logger),
		RateLimitPrefix: cfg.RateLimit.PathPrefix,
		Verifier:        codec,
	})
	var pinger handler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	auth := handler.NewAuthHandler(engine, logger, metrics)
	router.RegisterRoutes(e, pinger, metrics)
	router.RegisterAuth(e, auth)
	router.RegisterUsers(e, auth, handler.NewSessionHandler(tracker, logger))

	addr := ":" + cfg.Port // Address string with port
	logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", "error", err)
	}
}

func openStores(ctx context.Context, cfg config.Config, logger logging.Logger) (stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn(ctx, "using in-memory stores; state is lost on restart")
		return stores{
			users:    memory.NewUserStore(),
			tokens:   memory.NewTokenStore(),
			sessions: memory.NewSessionStore(),
		}, nil
	}

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DB.User,
		Pass:     cfg.DB.Pass,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Name:     cfg.DB.Name,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return stores{}, err
	}
	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		logger.Info(ctx, "migrations applied")
	}
	return stores{
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
		sessions: repository.NewSessionRepo(db),
		db:       db,
	}, nil
}

// newLimiter returns nil when admission control is disabled.  A redis
// backend that cannot be reached at startup falls back to the in-process map.
func newLimiter(cfg config.Config, logger logging.Logger) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil
	}
	policy := ratelimit.Policy{
		Capacity:       rl.Capacity,
		RefillTokens:   rl.RefillTokens,
		RefillInterval: rl.RefillInterval,
	}
	if rl.Backend == config.BackendRedis {
		if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
			return ratelimit.NewRedisLimiter(rdb, policy, rl.KeyPrefix, rl.TTL, nil)
		}
		logger.Warn(context.Background(), "redis unreachable, using in-process rate limiter", "addr", cfg.Redis.Addr)
	}
	return ratelimit.NewMemoryLimiter(policy, rl.MaxClients, nil)
}
