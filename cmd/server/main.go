package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/auth"
	"github.com/inkboard/inkboard/internal/collab"
	"github.com/inkboard/inkboard/internal/config"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store/postgres"
	redisstore "github.com/inkboard/inkboard/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := collab.Options{
		InstanceID:     uuid.New().String(),
		Guard:          agent.NewGuard(cfg.AgentRatePerMinute),
		AgentTimeout:   cfg.AgentTimeout,
		SaveInterval:   cfg.SnapshotInterval,
		OriginPatterns: cfg.OriginPatterns(),
	}

	var snapshots *postgres.SnapshotRepo
	if cfg.DatabaseURL != "" {
		snapshots, err = postgres.Open(ctx, cfg.DatabaseURL, 10)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer snapshots.Close()

		opts.Load = func(ctx context.Context, boardID string) ([]shape.Shape, error) {
			snap, err := snapshots.Latest(ctx, boardID)
			if errors.Is(err, postgres.ErrNoSnapshot) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return snap.Shapes, nil
		}
		opts.Save = func(ctx context.Context, boardID string, shapes []shape.Shape) error {
			snap, err := snapshots.Save(ctx, boardID, shapes)
			if err != nil {
				return err
			}
			slog.Debug("snapshot saved", "board", boardID, "version", snap.Version)
			return nil
		}
	} else {
		slog.Warn("DATABASE_URL not set, boards will not be persisted")
	}

	if cfg.RedisAddr != "" {
		pubsub, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("connect to redis", "error", err)
			os.Exit(1)
		}
		defer pubsub.Close()
		opts.Relay = pubsub
	}

	if cfg.OpenAIAPIKey != "" {
		opts.Agent = &agent.Loop{
			Model:     agent.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AgentModel),
			MaxRounds: cfg.AgentMaxRounds,
		}
	} else {
		slog.Warn("OPENAI_API_KEY not set, agent requests will be refused")
	}

	hub := collab.NewHub(opts)
	go hub.Run()

	validator := auth.NewValidator(cfg.JWTSecret)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(ctx, cfg, hub, validator, snapshots),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty boards
		slog.Info("saving all boards...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "instance", opts.InstanceID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
