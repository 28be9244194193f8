package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/http/handlers"
	httpapi "mediagen/internal/http/httpapi"
	"mediagen/internal/infra"
	"mediagen/internal/pipeline"
	"mediagen/internal/scheduler"
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

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	jobs := repo.NewJobRepository(runner)
	ledger := repo.NewCreditLedger(runner, logger)
	// The API only enqueues; workers run the queue.
	queue := scheduler.New(runner, logger, cfg.TaskPollInterval)

	pl := pipeline.New(pipeline.Deps{
		Jobs:   jobs,
		Ledger: ledger,
		Queue:  queue,
		Logger: logger,
		Config: pipeline.Config{
			Deployments:              cfg.Deployments(),
			PollInterval:             cfg.PollInterval,
			PollErrorInterval:        cfg.PollErrorInterval,
			PollMaxAttempts:          cfg.PollMaxAttempts,
			PollMaxConsecutiveErrors: cfg.PollMaxConsecutiveErrors,
		},
	})

	app := handlers.NewApp(pl, ledger, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router, logger)

	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
