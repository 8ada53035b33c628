package memory

import (
	"context"

	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// StaticCatalogLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticCatalogLoader struct {
	catalogs map[string]catalog.Definition
}

func NewStaticCatalogLoader(defs ...catalog.Definition) *StaticCatalogLoader {
	catalogs := make(map[string]catalog.Definition, len(defs))
	for _, def := range defs {
		catalogs[def.ID] = def
	}
	return &StaticCatalogLoader{catalogs: catalogs}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, catalogID string) (catalog.Definition, error) {
	if def, ok := l.catalogs[catalogID]; ok {
		return def, nil
	}
	return catalog.Definition{}, domain.ErrCatalogNotFound
}
