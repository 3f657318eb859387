package admin

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/logging"
)

const migrationsSource = "file://migrations"

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending migrations from ./migrations, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	cmd.Flags().Int("down", 0, "Roll back this many migrations instead of applying")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	down, _ := cmd.Flags().GetInt("down")
	if down > 0 {
		return withMigrator(env.cfg.DatabaseURL, func(m *migrate.Migrate) error {
			if err := m.Steps(-down); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to roll back migrations: %w", err)
			}
			env.logger.Info("migrations rolled back", zap.Int("steps", down))
			return nil
		})
	}

	return runMigrations(env.cfg.DatabaseURL, env.logger)
}

func withMigrator(databaseURL string, fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsSource, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return fn(m)
}

func runMigrations(databaseURL string, logger *zap.Logger) error {
	logger = logging.OrNop(logger).Named("migrate")

	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		upErr := m.Up()
		if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", upErr)
		}

		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			logger.Info("no migrations applied")
		case err != nil:
			return fmt.Errorf("failed to get migration version: %w", err)
		case dirty:
			return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
		case errors.Is(upErr, migrate.ErrNoChange):
			logger.Info("database is up to date", zap.Uint("version", version))
		default:
			logger.Info("migrations applied", zap.Uint("version", version))
		}
		return nil
	})
}
