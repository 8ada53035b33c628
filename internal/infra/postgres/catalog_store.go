package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// CatalogStore loads and saves catalog JSONB in Postgres.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) LoadCatalog(ctx context.Context, catalogID string) (catalog.Definition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM catalogs WHERE id=$1`, catalogID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Definition{}, fmt.Errorf("load catalog %q: %w", catalogID, domain.ErrCatalogNotFound)
	}
	if err != nil {
		return catalog.Definition{}, fmt.Errorf("load catalog: %w", err)
	}
	var def catalog.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return catalog.Definition{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if def.ID == "" {
		def.ID = catalogID
	}
	return def, nil
}

// SaveCatalog upserts def under its ID.
func (s *CatalogStore) SaveCatalog(ctx context.Context, def catalog.Definition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: catalog id required", domain.ErrInvalidCatalog)
	}
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO catalogs (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		def.ID, string(data),
	)
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
