package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/config"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/file"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/postgres"
)

// NewSeedCmd stores a catalog in Postgres so `start` can serve it with catalog.source=postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the built-in catalog (or --file) in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, path)
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "catalog file (.yaml, .toml or .json); defaults to the built-in totem quiz")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, path string) error {
	logger := newLogger()
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return err
	}

	def := catalog.TotemDefinition()
	if path != "" {
		var err error
		def, err = file.NewCatalogLoader(path).LoadCatalog(ctx, "")
		if err != nil {
			return err
		}
	}
	// Refuse to store something start would reject.
	cat, err := catalog.New(def)
	if err != nil {
		return err
	}
	if cat.ID() == "" {
		return fmt.Errorf("catalog in %s has no id", path)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.NewCatalogStore(pool).SaveCatalog(ctx, cat.Definition()); err != nil {
		return err
	}
	logger.Info("catalog seeded", "catalog", cat.ID(), "questions", cat.Len())
	return nil
}
