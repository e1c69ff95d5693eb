package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadab-hotels/orders-api/internal/config"
	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/events"
	"github.com/nadab-hotels/orders-api/internal/push"
	"github.com/nadab-hotels/orders-api/internal/router"
	"github.com/nadab-hotels/orders-api/internal/service"
	"github.com/nadab-hotels/orders-api/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()
	loc := cfg.Location()

	store, err := database.Open(ctx, database.Options{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		PostgresURL:   cfg.DatabaseURL,
		ConnTimeout:   10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeWithTimeout("store", store.Close)
	log.Printf("Store ready (driver=%s)", cfg.StoreDriver)

	sender, err := newSender(ctx, cfg)
	if err != nil {
		return err
	}
	dispatcher := push.NewDispatcher(sender, cfg.PushWorkers, cfg.PushQueueSize, cfg.PushTimeout)
	defer closeWithTimeout("push dispatcher", dispatcher.Close)

	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	sinks := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.Printf("Publishing order events to exchange %q", events.Exchange)
	}

	fees := service.NewFeeAggregator(store, loc)
	orders := service.NewOrderService(store, fees, dispatcher, sinks)
	stats := service.NewStatsService(store, loc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, router.Deps{Orders: orders, Stats: stats, Hub: hub}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// newSender builds the FCM client when credentials are configured. Without
// them notifications are only logged.
func newSender(ctx context.Context, cfg *config.Config) (push.Sender, error) {
	if cfg.FirebaseCredentialsFile == "" {
		log.Println("WARN: FIREBASE_CREDENTIALS_FILE not set, push notifications are logged only")
		return push.NopSender{}, nil
	}
	creds, err := push.LoadCredentials(ctx, cfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("load firebase credentials: %w", err)
	}

	tokens := creds.TokenSource
	if cfg.RedisURL != "" {
		rdb, err := push.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		tokens = push.NewCachedTokenSource(rdb, creds.ProjectID, tokens)
		log.Println("Sharing FCM access tokens through Redis")
	}

	return push.NewClient(cfg.FCMEndpoint, creds.ProjectID, tokens, &http.Client{Timeout: cfg.PushTimeout}), nil
}

func closeWithTimeout(name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Printf("ERROR: close %s: %v", name, err)
	}
}
