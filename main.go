package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/msomdec/updog/internal/app"
	"github.com/msomdec/updog/internal/config"
	"github.com/msomdec/updog/internal/handler"
	"github.com/msomdec/updog/internal/notify"
	"github.com/msomdec/updog/internal/repository/sqlite"
)

func main() {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	sinks, closeSinks := eventSinks(cfg)
	defer closeSinks()
	events := notify.NewDispatcher(sinks, notify.WithQueueSize(cfg.EventQueueSize))

	core := app.New(cfg, db, events)
	if err := core.Bootstrap(ctx, cfg); err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}
	slog.Info("bootstrap complete")
	go core.Run(ctx)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, db)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := events.Close(shutdownCtx); err != nil {
		slog.Error("event drain error", "error", err)
	}
	slog.Info("server stopped")
}

// eventSinks builds the configured event sinks. Brokers that cannot be
// reached at startup are logged and skipped.
func eventSinks(cfg *config.Config) ([]notify.Sink, func()) {
	sinks := []notify.Sink{notify.NewLogSink(slog.Default())}
	var closers []func()

	if cfg.RabbitMQURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
		if err != nil {
			slog.Warn("rabbitmq sink disabled", "error", err)
		} else {
			sinks = append(sinks, amqpSink)
			closers = append(closers, func() { _ = amqpSink.Close() })
			slog.Info("rabbitmq sink enabled", "queue", cfg.RabbitMQEventsQueue)
		}
	}

	if cfg.RedisAddr != "" {
		client := notify.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			slog.Warn("redis sink disabled", "error", err)
			_ = client.Close()
		} else {
			sinks = append(sinks, notify.NewRedisSink(client, cfg.RedisEventsChannel))
			closers = append(closers, func() { _ = client.Close() })
			slog.Info("redis sink enabled", "channel", cfg.RedisEventsChannel)
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
