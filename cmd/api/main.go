package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"io.winapps.confessionboard/internal/cache"
	"io.winapps.confessionboard/internal/config"
	"io.winapps.confessionboard/internal/db"
	"io.winapps.confessionboard/internal/handlers"
	"io.winapps.confessionboard/internal/jobs"
	"io.winapps.confessionboard/internal/server"
	"io.winapps.confessionboard/internal/storage"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize PostgreSQL
	postgresDB, err := db.InitPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalw("failed to initialize PostgreSQL", "error", err)
	}
	defer postgresDB.Close()

	// Initialize Redis, used only for the list cache
	var listCache cache.ListCache = cache.NopListCache{}
	if cfg.Redis.Enabled {
		redisClient, err := db.InitRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalw("failed to initialize Redis", "error", err)
		}
		defer redisClient.Close()
		listCache = cache.NewRedisListCache(redisClient, cfg.Redis.CacheTTL)
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalw("failed to initialize file storage", "error", err, "backend", cfg.Storage.Backend)
	}

	repo := db.NewConfessionRepository(postgresDB)
	confessionHandler := handlers.NewConfessionHandler(repo, files, listCache, logger, handlers.Options{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
	})
	router := server.NewRouter(confessionHandler, logger, cfg.CORSOrigin)

	var sweeper *jobs.OrphanSweeper
	if cfg.Sweeper.Enabled {
		sweeper = jobs.NewOrphanSweeper(files, repo, logger, cfg.Sweeper.Grace)
		if err := sweeper.Start(cfg.Sweeper.Schedule); err != nil {
			logger.Fatalw("failed to start orphan sweeper", "error", err)
		}
	}

	// No WriteTimeout: audio downloads may legitimately take longer than any fixed bound.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Start server in a goroutine
	go func() {
		logger.Infow("server starting", "port", cfg.Port, "storage", cfg.Storage.Backend, "cache", cfg.Redis.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}

	logger.Info("server exited")
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.IsDevelopment() {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func newFileStore(ctx context.Context, cfg config.Storage) (storage.FileStore, error) {
	if cfg.Backend == "s3" {
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			BaseEndpoint: cfg.S3.BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
