// Package assets looks up per-category images shown with quiz results.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// Image is an image file read into memory.
type Image struct {
	Name string
	Data []byte
}

// ImageStore reads images/<category>.jpg style files and caches them. Concurrent lookups
// for the same category share a single read. Missing files are not cached so images can be
// added while the bot runs.
type ImageStore struct {
	dir string
	ext string
	sf  singleflight.Group

	mu    sync.RWMutex
	cache map[domain.Category]Image
}

// NewImageStore serves images from dir. An empty dir disables images.
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{
		dir:   dir,
		ext:   ".jpg",
		cache: make(map[domain.Category]Image),
	}
}

// Dir returns the image directory.
func (s *ImageStore) Dir() string { return s.dir }

// FileName returns the file name used for category.
func (s *ImageStore) FileName(category domain.Category) string {
	return string(category) + s.ext
}

// Image returns the image for category or domain.ErrImageNotFound.
func (s *ImageStore) Image(category domain.Category) (Image, error) {
	if s.dir == "" || !validName(string(category)) {
		return Image{}, domain.ErrImageNotFound
	}

	s.mu.RLock()
	img, ok := s.cache[category]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	result, err, _ := s.sf.Do(string(category), func() (interface{}, error) {
		s.mu.RLock()
		img, ok := s.cache[category]
		s.mu.RUnlock()
		if ok {
			return img, nil
		}

		name := s.FileName(category)
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			return Image{}, fmt.Errorf("%s: %w", name, domain.ErrImageNotFound)
		}
		if err != nil {
			return Image{}, fmt.Errorf("read image: %w", err)
		}

		img = Image{Name: name, Data: data}
		s.mu.Lock()
		s.cache[category] = img
		s.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return Image{}, err
	}
	return result.(Image), nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
