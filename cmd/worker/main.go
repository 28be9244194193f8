package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/comfy"
	"mediagen/internal/infra"
	"mediagen/internal/pipeline"
	"mediagen/internal/scheduler"
	"mediagen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	ledger := repo.NewCreditLedger(runner, logger)

	backend, err := comfy.NewClient(comfy.Options{
		APIKey:  cfg.ComfyAPIKey,
		BaseURL: cfg.ComfyBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure compute backend")
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	sched := scheduler.New(runner, logger, cfg.TaskPollInterval)

	pl := pipeline.New(pipeline.Deps{
		Jobs:       jobs,
		Ledger:     ledger,
		Queue:      sched,
		Backend:    backend,
		Store:      store,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Logger:     logger,
		Config: pipeline.Config{
			Deployments:              cfg.Deployments(),
			PollInterval:             cfg.PollInterval,
			PollErrorInterval:        cfg.PollErrorInterval,
			PollMaxAttempts:          cfg.PollMaxAttempts,
			PollMaxConsecutiveErrors: cfg.PollMaxConsecutiveErrors,
		},
	})
	pl.Register(sched)

	logger.Info().Int("workers", cfg.WorkerCount).Msg("worker: started")
	if err := sched.Run(ctx, cfg.WorkerCount); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (pipeline.ObjectStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.StorageBaseURL,
		})
	}
	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	return storage.NewFileStore(storagePath, cfg.StorageBaseURL)
}
