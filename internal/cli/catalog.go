package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/config"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/file"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/memory"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/postgres"
)

// NewCatalogCmd groups catalog maintenance commands.
func NewCatalogCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect quiz catalogs",
	}

	var path string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured catalog (or --file) and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if path != "" {
				cfg.Catalog.Source = config.CatalogFile
				cfg.Catalog.Path = path
			}
			cat, err := openCatalog(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog %q: %d questions, %d categories\n", cat.ID(), cat.Len(), len(cat.Categories()))
			for _, info := range cat.CategoryInfos() {
				fmt.Fprintf(out, "  %s\t%s\n", info.ID, info.Name)
			}
			return nil
		},
	}
	validate.Flags().StringVar(&path, "file", "", "catalog file (.yaml, .toml or .json)")
	cmd.AddCommand(validate)
	return cmd
}

// openCatalog loads and validates the catalog selected by cfg. pool may be nil, in which case
// a postgres source opens its own connection.
func openCatalog(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (*catalog.Catalog, error) {
	id := cfg.Catalog.ID
	if id == "" && cfg.Catalog.Source != config.CatalogFile {
		id = catalog.TotemID
	}

	var loader catalog.Loader
	switch cfg.Catalog.Source {
	case config.CatalogFile:
		// A file holds one catalog; an empty id accepts whatever it declares.
		loader = file.NewCatalogLoader(cfg.Catalog.Path)
	case config.CatalogPostgres:
		if pool == nil {
			p, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return nil, fmt.Errorf("connect postgres: %w", err)
			}
			defer p.Close()
			pool = p
		}
		loader = postgres.NewCatalogStore(pool)
	default:
		loader = memory.NewStaticCatalogLoader(catalog.TotemDefinition())
	}
	return catalog.Load(ctx, loader, id)
}
