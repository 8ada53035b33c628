// Package file loads catalog definitions from YAML, TOML or JSON files.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// CatalogLoader reads a single catalog from a file. The format follows the extension.
type CatalogLoader struct {
	path string
}

func NewCatalogLoader(path string) *CatalogLoader {
	return &CatalogLoader{path: path}
}

// LoadCatalog decodes the file. An empty catalogID accepts whatever the file holds; otherwise
// the file's id must match (a file without an id takes catalogID).
func (l *CatalogLoader) LoadCatalog(_ context.Context, catalogID string) (catalog.Definition, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog.Definition{}, fmt.Errorf("read %s: %w", l.path, domain.ErrCatalogNotFound)
		}
		return catalog.Definition{}, fmt.Errorf("read catalog: %w", err)
	}

	def, err := Decode(filepath.Ext(l.path), data)
	if err != nil {
		return catalog.Definition{}, fmt.Errorf("decode %s: %w", l.path, err)
	}
	if def.ID == "" {
		def.ID = catalogID
	}
	if catalogID != "" && def.ID != catalogID {
		return catalog.Definition{}, fmt.Errorf("%s holds %q, want %q: %w", l.path, def.ID, catalogID, domain.ErrCatalogNotFound)
	}
	return def, nil
}

// Decode parses data according to ext (".yaml", ".yml", ".toml" or ".json").
func Decode(ext string, data []byte) (catalog.Definition, error) {
	var def catalog.Definition
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &def)
	case ".toml":
		err = toml.Unmarshal(data, &def)
	case ".json":
		err = json.Unmarshal(data, &def)
	default:
		return def, fmt.Errorf("unsupported catalog format %q", ext)
	}
	return def, err
}
