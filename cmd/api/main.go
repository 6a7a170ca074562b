// @title                       Feed API
// @version                     1.0
// @description                 Social feed backend: accounts, posts with images, status and realtime post events.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/socialfeed/feed-api/internal/api"
	"github.com/socialfeed/feed-api/internal/api/handler"
	"github.com/socialfeed/feed-api/internal/core/ports"
	"github.com/socialfeed/feed-api/internal/core/service"
	mongodb "github.com/socialfeed/feed-api/internal/infrastructure/db/mongo"
	redisdb "github.com/socialfeed/feed-api/internal/infrastructure/db/redis"
	natsmsg "github.com/socialfeed/feed-api/internal/infrastructure/messaging/nats"
	"github.com/socialfeed/feed-api/internal/infrastructure/queue"
	"github.com/socialfeed/feed-api/internal/infrastructure/realtime"
	"github.com/socialfeed/feed-api/internal/infrastructure/storage"
	"github.com/socialfeed/feed-api/internal/pkg/config"
	"github.com/socialfeed/feed-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "feed-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "feed-api",
	})

	// --- Persistence ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "feed-api",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	users := mongodb.NewUserRepository(db)
	posts := mongodb.NewPostRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, posts); err != nil {
		return err
	}

	health := map[string]handler.PingFunc{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}

	// --- Image storage ---
	var (
		images   ports.ImageStore
		imageDir string
	)
	switch cfg.Storage.Driver {
	case "s3":
		s3cfg := cfg.Storage.S3
		images, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			PublicURL:       s3cfg.PublicURL,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			return err
		}
	default:
		local, err := storage.NewLocalStore(cfg.Storage.UploadDir)
		if err != nil {
			return err
		}
		images, imageDir = local, local.Dir()
	}

	cleaner := queue.NewCleaner(cfg.Storage.CleanupWorkers, images, log)
	cleaner.Start(ctx)

	// --- Realtime ---
	hub := realtime.NewHub(log)
	defer hub.Close()

	broadcaster, err := newBroadcaster(ctx, cfg, hub, health)
	if err != nil {
		return err
	}

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(users, service.NewBcryptHasher(service.PasswordCost), tokens, log)
	postService := service.NewPostService(posts, users, images, cleaner, broadcaster, log)
	statusService := service.NewStatusService(users, log)

	e, err := api.NewRouter(api.Deps{
		Log:            log,
		Auth:           authService,
		Tokens:         tokens,
		Posts:          postService,
		Status:         statusService,
		Listeners:      hub.Handle,
		ImageDir:       imageDir,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		AuthRateLimit:  cfg.AuthRateLimit,
		Health:         health,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown failed")
	}
	return nil
}

// newBroadcaster picks where post events go. With a relay every instance
// publishes to the bus and delivers what it receives to its own listeners.
func newBroadcaster(
	ctx context.Context,
	cfg *config.Config,
	hub *realtime.Hub,
	health map[string]handler.PingFunc,
) (ports.Broadcaster, error) {
	log := logger.Get()
	switch cfg.Broadcast.Driver {
	case "redis":
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, func() { _ = rdb.Close() })
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		relay := redisdb.NewRelay(rdb, cfg.Broadcast.Channel, log)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
		return relay, nil

	case "nats":
		nc, err := natsmsg.Connect(cfg.NATS.URL, log)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(ctx, nc.Close)
		health["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}

		relay := natsmsg.NewRelay(nc, cfg.Broadcast.Channel, log)
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Error().Err(err).Msg("nats relay stopped")
			}
		}()
		return relay, nil

	default:
		return hub, nil
	}
}
