package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/logging"
)

type cmdEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

// loadEnv loads configuration and a logger for the local commands.
func loadEnv() (*cmdEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &cmdEnv{cfg: cfg, logger: logger}, nil
}

func withApp(ctx context.Context, fn func(app *App) error) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	app, err := NewApp(ctx, env.cfg, env.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
