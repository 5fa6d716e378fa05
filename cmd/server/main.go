package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/skycast/internal/advisory"
	"github.com/neexbeast/skycast/internal/api"
	"github.com/neexbeast/skycast/internal/dashboard"
	"github.com/neexbeast/skycast/internal/notify"
	"github.com/neexbeast/skycast/internal/sequence"
	"github.com/neexbeast/skycast/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("loading .env file", "err", err)
	}

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// sequenceBackend is a cycle id source that can report its health.
type sequenceBackend interface {
	dashboard.Sequence
	Ping(ctx context.Context) error
}

func run(log *slog.Logger) error {
	weatherKey := mustEnv("OPENWEATHER_API_KEY")
	advisoryKey := mustEnv("ADVISORY_API_KEY")
	bearerToken := mustEnv("BEARER_TOKEN")
	port := getEnv("PORT", "8080")
	weatherURL := getEnv("OPENWEATHER_BASE_URL", weather.DefaultBaseURL)
	advisoryURL := getEnv("ADVISORY_URL", advisory.DefaultURL)
	advisoryModel := getEnv("ADVISORY_MODEL", advisory.DefaultModel)
	origins := strings.Split(getEnv("CORS_ORIGIN", "*"), ",")

	ctx := context.Background()

	// Cycle ids come from Redis when configured so replicas agree on ordering.
	var seq sequenceBackend = sequence.NewMemory()
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient, err := sequence.Connect(ctx, redisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		seq = sequence.NewRedis(redisClient)
		log.Info("using redis cycle sequence")
	}

	// Wire dependencies.
	fetcher := weather.NewFetcher(weatherURL, weatherKey)
	advisor := advisory.NewService(advisory.NewClientWithURL(advisoryURL, advisoryModel, advisoryKey), log)
	banner := notify.NewBanner(log)
	controller := dashboard.NewController(fetcher, advisor, seq, banner, log)
	defer controller.Close()

	handlers := api.NewHandlers(controller, log)
	router := api.NewRouter(handlers, bearerToken, origins, seq, log)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable not set", "key", key)
		os.Exit(1)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
