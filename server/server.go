package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auralis/cache"
	"auralis/config"
	"auralis/core/audio"
	"auralis/core/auth"
	"auralis/core/chat"
	"auralis/core/janitor"
	"auralis/core/ratelimit"
	"auralis/db"
	"auralis/logger"
	"auralis/storage"

	"github.com/go-redis/redis/v8"
)

const shutdownTimeout = 15 * time.Second

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// openBus 按 CHAT_BUS 选择进程内总线或 NATS
func openBus(cfg *config.Config) (chat.Bus, error) {
	if cfg.ChatBus == config.BusNATS {
		return chat.NewNATSBus(cfg.NATSURL)
	}
	return chat.NewMemoryBus(), nil
}

// Start initializes all components and serves HTTP until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return err
	}

	store, err := db.OpenStore(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.DBDriver, err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("Failed to close store", logger.ErrorField(err))
		}
	}()
	logger.Info("Database connected", logger.String("driver", cfg.DBDriver))

	media, err := storage.NewMinioStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}

	// 在线表和限流计数：启用 Redis 时多实例共享，否则放在进程内
	var (
		registry    chat.Registry   = chat.NewMemoryRegistry()
		rates       ratelimit.Store // 未启用 Redis 时由 NewAPIHandler 使用进程内计数
		redisHealth Pinger
	)
	if cfg.RedisEnabled {
		client, err := cache.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("Failed to close Redis", logger.ErrorField(err))
			}
		}()
		registry = cache.NewRedisPresence(client)
		if rates, err = cache.NewRateLimitStore(client); err != nil {
			return err
		}
		redisHealth = redisPinger{client: client}
		logger.Info("Redis connected", logger.String("host", cfg.RedisHost))
	}

	bus, err := openBus(cfg)
	if err != nil {
		return fmt.Errorf("failed to open chat bus: %w", err)
	}
	defer bus.Close()

	chatService := chat.NewService(store, bus)
	hub := chat.NewHub(registry, bus, chatService)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Chat hub stopped", logger.ErrorField(err))
		}
	}()
	defer hub.Stop()

	jan := janitor.New(cfg.TempDir, cfg.TempMaxAge)
	if err := jan.Start(janitor.DefaultSchedule); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer jan.Stop()

	directory := auth.NewClerkDirectory(cfg.ClerkAPIURL, cfg.ClerkSecretKey, &http.Client{Timeout: 10 * time.Second})

	handler := NewAPIHandler(Options{
		Config:    cfg,
		Store:     store,
		Media:     media,
		Prober:    audio.NewProber(cfg.FFmpegPath),
		Tokens:    verifier,
		Admins:    auth.NewAdminChecker(directory, cfg.AdminEmail),
		Chat:      chatService,
		Hub:       hub,
		RateStore: rates,
		Database:  store,
		Redis:     redisHealth,
		Storage:   media,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("port", cfg.Port),
			logger.String("environment", cfg.Environment),
			logger.String("chatBus", cfg.ChatBus))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		logger.Info("Shutting down server", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
