package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/johnqh/subscription-lib/adapter/cli"
	"github.com/johnqh/subscription-lib/internal/app"
	"github.com/johnqh/subscription-lib/pkg/config"
	"github.com/johnqh/subscription-lib/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development defaults", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	cliApp := cli.NewApp(container.Service)
	if cfg.UserID != "" {
		if err := container.Service.ChangeUser(ctx, cfg.UserID, cfg.Email); err != nil {
			logger.Warn("failed to set configured user", "error", err)
		}
		cliApp.SetCurrentUser(cfg.UserID, cfg.Email)
	}
	cli.SetApp(cliApp)

	cli.Execute(ctx)
}
