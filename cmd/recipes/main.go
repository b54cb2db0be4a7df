package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/recipe-importer/internal/api"
	"github.com/user/recipe-importer/internal/config"
	"github.com/user/recipe-importer/internal/connectivity"
	"github.com/user/recipe-importer/internal/embedding"
	"github.com/user/recipe-importer/internal/history"
	"github.com/user/recipe-importer/internal/importer"
	"github.com/user/recipe-importer/internal/monitoring"
	"github.com/user/recipe-importer/internal/recipes"
	"github.com/user/recipe-importer/internal/storage"
	"github.com/user/recipe-importer/internal/worker"
	"github.com/user/recipe-importer/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	// Initialize structured logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	host := config.NewHost(cfg.ScrapeHost)
	cfg.WatchHost(host, log)

	// Initialize Storage Layer
	historyStore, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Fatal("failed to open history", zap.Error(err))
	}
	defer historyStore.Close()

	var (
		vectors     embedding.VectorStore
		markers     embedding.MarkerCache
		pgPinger    api.Pinger
		redisPinger api.Pinger
	)
	if cfg.PostgresURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgStore.Close()
		vectors, pgPinger = pgStore, pgStore

		if cfg.RedisAddr != "" {
			redisStore := storage.NewRedisStore(cfg.RedisAddr)
			defer redisStore.Close()
			markers, redisPinger = redisStore, redisStore
		}
	} else {
		log.Info("POSTGRES_URL not set, recipe embeddings disabled")
	}

	metrics := monitoring.NewMetrics(nil)

	// Embeddings
	embedClient := embedding.NewClient(cfg.EmbedEndpoint, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedRate)
	markerTTL := time.Duration(cfg.EmbedMarkerDays) * 24 * time.Hour
	syncer := embedding.NewSyncer(historyStore, embedClient, vectors, markers, cfg.EmbedBatch, markerTTL, log)
	dispatcher := embedding.NewDispatcher(syncer, time.Duration(cfg.SyncTimeout)*time.Second, metrics, log)

	// Connectivity
	prober := connectivity.NewProber(cfg.ProbeURL, time.Duration(cfg.ProbeInterval)*time.Second, log)
	watcher := connectivity.NewWatcher(prober.Check(ctx), historyStore, dispatcher, metrics, log)
	events := make(chan connectivity.Event)
	go prober.Run(ctx, events)
	go watcher.Run(ctx, events)

	svc := recipes.NewService(importer.New(host, nil), historyStore, watcher, dispatcher, metrics, log)

	// Initialize API Server
	server := api.NewServer(cfg, svc, host, watcher, pgPinger, redisPinger, metrics, log)
	ln, err := server.Listen()
	if err != nil {
		log.Fatal("could not listen", zap.String("port", cfg.ServerPort), zap.Error(err))
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.ServerPort), zap.String("scrape_host", host.Get()))

	// The backfill only makes sense where embeddings can be stored.
	backfill := worker.NewBackfill(time.Duration(cfg.BackfillInterval)*time.Second, watcher, historyStore, dispatcher, log)
	registrar := worker.NewRegistrar(cfg.IsProduction(), func() bool { return vectors != nil }, backfill, log)
	registrar.RegisterOnce(ctx)

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stop()
	<-watcher.Done()
	watcher.Wait()
	backfill.Wait()
	dispatcher.Close()

	log.Info("server exiting")
}
