package main

import (
	"fmt"
	"os"

	"fxjournal/internal/cli"
	"fxjournal/internal/config"
	"fxjournal/internal/database"
	"fxjournal/internal/logger"
	"fxjournal/internal/server"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	app := &cli.App{Connect: connect}
	err := cli.NewRootCmd(app).Execute()
	if closeErr := app.Close(); closeErr != nil {
		logger.Get().Warnw("failed to close database", "error", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// connect opens the configured backend and brings its schema up to date.
func connect() (server.Services, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return server.Services{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	manager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return server.Services{}, nil, err
	}
	if err := manager.Migrate(); err != nil {
		_ = manager.Close()
		return server.Services{}, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return server.NewServices(manager.DB()), manager.Close, nil
}
