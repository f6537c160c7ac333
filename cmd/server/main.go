package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/campus-carpool/internal/config"
	"github.com/example/campus-carpool/internal/dispatch"
	"github.com/example/campus-carpool/internal/eta"
	"github.com/example/campus-carpool/internal/geo"
	httpapi "github.com/example/campus-carpool/internal/http"
	"github.com/example/campus-carpool/internal/logging"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/ride"
	"github.com/example/campus-carpool/internal/seed"
	"github.com/example/campus-carpool/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type conversationLog interface {
	messaging.Sink
	messaging.Reader
}

// notificationSinks builds the fan-out the engine posts into. With Kafka and
// Redis both configured the consumer materializes history into Redis, so the
// server only publishes. Without Redis there is no consumer-backed history,
// and the server writes its own log.
func notificationSinks(cfg config.ServerConfig, sharedHistory bool, history messaging.Sink, hub *dispatch.Hub) (messaging.Fanout, []func() error) {
	var closers []func() error
	sinks := messaging.Fanout{hub}
	if len(cfg.KafkaBrokers) > 0 {
		ks := messaging.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, ks.Close)
		sinks = append(sinks, ks)
	}
	if len(cfg.KafkaBrokers) == 0 || !sharedHistory {
		sinks = append(sinks, history)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, dispatch.NewWebhook(cfg.WebhookURL))
	}
	return sinks, closers
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	var rc *redis.Client
	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		closers = append(closers, rc.Close)
		if err := rc.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var store storage.Store
	switch {
	case cfg.PGDSN != "":
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return err
		}
		closers = append(closers, ps.Close)
		if cfg.RunMigrations {
			if err := ps.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("migrations applied")
		}
		store = ps
		logger.Info("using postgres store")
	case rc != nil:
		store = storage.NewRedisStore(rc)
		logger.Info("using redis store", "addr", cfg.RedisAddr)
	default:
		store = storage.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	var index geo.Index = geo.NewIndex()
	if rc != nil {
		index = geo.NewRedisIndex(rc, cfg.RedisGeoKey)
	}

	var history conversationLog = messaging.NewMemoryLog()
	if rc != nil {
		history = messaging.NewRedisLog(rc)
	}
	hub := dispatch.NewHub()
	hub.Logger = logger
	sinks, closeSinks := notificationSinks(cfg, rc != nil, history, hub)
	closers = append(closers, closeSinks...)
	if len(cfg.KafkaBrokers) > 0 {
		logger.Info("publishing notifications to kafka", "topic", cfg.KafkaTopic, "shared_history", rc != nil)
	}

	routes := &eta.Service{Cache: eta.NewCache(cfg.ETACacheTTL), Logger: logger}
	if cfg.OSRMEndpoint != "" {
		routes.Client = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}
	places := geo.NewResolver()

	engine := &ride.Engine{
		Store:    store,
		Places:   places,
		Routes:   routes,
		Sink:     sinks,
		Index:    index,
		Logger:   logger,
		Cooldown: cfg.CompletionCooldown,
		AckDelay: cfg.AckDelay,
	}
	defer engine.Wait()

	if cfg.SeedDemo {
		if err := seed.Demo(ctx, store, index, history, time.Now()); err != nil {
			return err
		}
		logger.Info("demo data loaded")
	}

	api := httpapi.NewServer(httpapi.Deps{
		Engine:   engine,
		Places:   places,
		Messages: history,
		Hub:      hub,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("campus-carpool listening", "addr", cfg.HTTPAddr)
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
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
