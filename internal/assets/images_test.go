package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

func TestImageStoreReadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "owl.jpg"), []byte("hoot"), 0o600))
	store := NewImageStore(dir)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := store.Image("owl")
			assert.NoError(t, err)
			assert.Equal(t, []byte("hoot"), img.Data)
		}()
	}
	wg.Wait()

	require.NoError(t, os.Remove(filepath.Join(dir, "owl.jpg")))
	img, err := store.Image("owl")
	require.NoError(t, err, "served from cache")
	assert.Equal(t, "owl.jpg", img.Name)
}

func TestImageStoreMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir)

	_, err := store.Image("bear")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bear.jpg"), []byte("grr"), 0o600))
	img, err := store.Image("bear")
	require.NoError(t, err, "misses are not cached")
	assert.Equal(t, []byte("grr"), img.Data)
}

func TestImageStoreRejectsPaths(t *testing.T) {
	store := NewImageStore(t.TempDir())
	for _, name := range []domain.Category{"", "..", "../etc/passwd", `a\b`} {
		_, err := store.Image(name)
		assert.ErrorIs(t, err, domain.ErrImageNotFound, string(name))
	}
}

func TestImageStoreDisabled(t *testing.T) {
	_, err := NewImageStore("").Image("owl")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}
