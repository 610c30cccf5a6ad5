package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/diagramstudio/diagram-api/internal/api"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/internal/core/service"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/config"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/db/mongo"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/db/postgres"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/db/redis"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/http/handlers"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/messaging/kafka"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/queue"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

//	@title						Diagram API
//	@version					1.0
//	@description				Diagram storage backend with JWT sessions, TOTP two-factor authentication and API keys.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-Key
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := bootLogger(os.Stderr)
		boot.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction()})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Stores ---
	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Postgres.URL,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		Timeout:         cfg.Postgres.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	if err := postgres.Migrate(ctx, db, log); err != nil {
		return err
	}

	store, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	auditRepo := mongo.NewAuditRepository(store.DB)
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer closeRedis(rdb, log)

	// --- Audit pipeline ---
	var publisher ports.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn().Err(err).Msg("kafka writer close")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.AuditTopic).Msg("publishing audit events to kafka")
	}

	dispatcher := queue.NewAuditDispatcher(cfg.Audit.Workers, auditRepo, publisher, log)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// --- Core ---
	timeout := cfg.Postgres.QueryTimeout
	users := postgres.NewUserRepository(db, timeout)
	keys := postgres.NewAPIKeyRepository(db, timeout)
	diagrams := postgres.NewDiagramRepository(db, timeout)

	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	totp := service.NewTOTPEngine(cfg.Auth.TOTPIssuer)

	router := api.NewRouter(api.Dependencies{
		Log:       log,
		Tokens:    tokens,
		Auth:      service.NewAuthService(users, hasher, totp, tokens, dispatcher),
		APIKeys:   service.NewAPIKeyService(keys, dispatcher),
		Users:     service.NewUserService(users, auditRepo, hasher, dispatcher),
		Diagrams:  service.NewDiagramService(diagrams),
		Limiter:   redis.NewFixedWindowLimiter(rdb),
		RateLimit: api.RateLimitPolicy{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
		HealthChecks: map[string]handlers.Check{
			"postgres": db.PingContext,
			"mongo":    store.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

// bootLogger writes failures that happen before configuration is loaded.
func bootLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("phase", "boot").Logger()
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("postgres close")
	}
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}
