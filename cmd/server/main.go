package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vigilhq/beacon/internal/api"
	"github.com/vigilhq/beacon/internal/config"
	"github.com/vigilhq/beacon/internal/shard"
	"github.com/vigilhq/beacon/internal/sink"
	"github.com/vigilhq/beacon/internal/stats"
	"github.com/vigilhq/beacon/internal/storage"
	"github.com/vigilhq/beacon/internal/useragent"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional; built-in defaults otherwise)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	var (
		cfg    *config.Config
		loader *config.Loader
	)
	if *cfgPath != "" {
		l, err := config.NewLoader(*cfgPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		loader = l
		cfg = l.Config()
	} else {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ──────────────────────────────────────────────────────────────
	var kv storage.KV
	switch cfg.Storage.Backend {
	case "redis":
		r, err := storage.NewRedis(ctx, cfg.Storage.RedisURL, time.Duration(cfg.Storage.TTLMinutes)*time.Minute)
		if err != nil {
			slog.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer r.Close()
		kv = r
		slog.Info("storage ready", "backend", "redis")
	default:
		kv = storage.NewMemory()
		slog.Info("storage ready", "backend", "memory")
	}

	// ── Shards and sink ──────────────────────────────────────────────────────
	uaCache := useragent.NewCache(cfg.UACache.Size, time.Duration(cfg.UACache.TTLMinutes)*time.Minute)
	shards := shard.NewRegistry(kv, stats.NewAggregator(uaCache))

	forwarder := sink.New(ctx, sink.Config{
		URL:        cfg.Sink.URL,
		Workers:    cfg.Sink.Workers,
		QueueDepth: cfg.Sink.QueueDepth,
		Timeout:    time.Duration(cfg.Sink.TimeoutMs) * time.Millisecond,
	})
	if cfg.Sink.URL != "" {
		slog.Info("sink forwarding enabled", "url", cfg.Sink.URL, "workers", cfg.Sink.Workers)
	}

	// ── Scheduled cleanup ────────────────────────────────────────────────────
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cleanup.Schedule, func() {
		total := 0
		for _, store := range shards.Shards() {
			n, err := store.CleanupOldWindows(ctx)
			if err != nil {
				slog.Warn("scheduled cleanup failed", "shard", store.ID(), "err", err)
				continue
			}
			total += n
		}
		if total > 0 {
			slog.Info("scheduled cleanup done", "windows_removed", total)
		}
	}); err != nil {
		slog.Error("invalid cleanup schedule", "schedule", cfg.Cleanup.Schedule, "err", err)
		os.Exit(1)
	}
	scheduler.Start()

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	if loader != nil {
		loader.OnChange(func(newCfg *config.Config) {
			if err := config.Validate(newCfg); err != nil {
				slog.Warn("hot-reload skipped: config invalid", "err", err)
				return
			}
			// Storage and listener settings need a restart; log so drift
			// from the running values is visible.
			slog.Info("config reloaded", "cleanup_schedule", newCfg.Cleanup.Schedule)
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(shards, forwarder)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutMs) * time.Millisecond,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	scheduler.Stop()
	forwarder.Shutdown()
	cancel()
	slog.Info("goodbye")
}
