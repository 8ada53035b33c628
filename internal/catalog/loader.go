package catalog

import (
	"context"
	"fmt"
)

// Loader fetches a catalog definition from a backing store (file, Postgres, memory).
type Loader interface {
	LoadCatalog(ctx context.Context, catalogID string) (Definition, error)
}

// Load fetches catalogID through loader and validates it.
func Load(ctx context.Context, loader Loader, catalogID string) (*Catalog, error) {
	def, err := loader.LoadCatalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	c, err := New(def)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", catalogID, err)
	}
	return c, nil
}
