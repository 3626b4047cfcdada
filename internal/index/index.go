// Package index maintains the in-memory photo metadata index: a mapping
// from library-relative path to cached tags plus filesystem fingerprint.
package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/codec"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// Index is the shared metadata mapping. Reads may run fully in parallel;
// the synchronization controller is the only writer.
type Index struct {
	mu     sync.RWMutex
	photos map[string]models.Photo

	store  storage.Provider
	codec  *codec.Adapter
	logger *slog.Logger
}

// New creates an empty index over the given library.
func New(store storage.Provider, adapter *codec.Adapter, logger *slog.Logger) *Index {
	return &Index{
		photos: make(map[string]models.Photo),
		store:  store,
		codec:  adapter,
		logger: logger,
	}
}

// Get returns the indexed photo at path.
func (ix *Index) Get(path string) (models.Photo, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.photos[path]
	if !ok {
		return models.Photo{}, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	return p, nil
}

// Upsert replaces the entry for p.Path.
func (ix *Index) Upsert(p models.Photo) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.photos[p.Path] = p
}

// Remove drops the entry for path, if present.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.photos, path)
}

// Len returns the number of indexed photos.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.photos)
}

// Fingerprints returns a snapshot of path → cached fingerprint, used by
// resync to reconcile against the directory listing.
func (ix *Index) Fingerprints() map[string]models.Fingerprint {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]models.Fingerprint, len(ix.photos))
	for p, photo := range ix.photos {
		out[p] = photo.Fingerprint
	}
	return out
}

// snapshot returns all photos ordered by path ascending.
func (ix *Index) snapshot() []models.Photo {
	ix.mu.RLock()
	out := make([]models.Photo, 0, len(ix.photos))
	for _, p := range ix.photos {
		out = append(out, p)
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// RefreshIfStale re-reads the photo when its on-disk fingerprint no longer
// matches the cached one. It returns whether a refresh occurred.
//
// A path whose backing file has disappeared is removed from the index and
// reported as refreshed. A path not yet indexed is indexed fresh.
func (ix *Index) RefreshIfStale(path string) (bool, error) {
	cached, err := ix.Get(path)
	fp, statErr := ix.store.Stat(path)
	if statErr != nil {
		if err == nil {
			ix.Remove(path)
			return true, nil
		}
		return false, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if err == nil && cached.Fingerprint.Matches(fp) {
		return false, nil
	}
	ix.Upsert(ix.load(path, fp))
	return true, nil
}

// load reads tags for a file, degrading the entry instead of failing: one
// unreadable file must not abort a scan or hide the photo from listings.
func (ix *Index) load(path string, fp models.Fingerprint) models.Photo {
	tags, err := ix.codec.Read(path)
	if err != nil {
		ix.logger.Warn("index: metadata read failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return models.Photo{Path: path, Fingerprint: fp, Degraded: true}
	}
	return models.Photo{Path: path, Fingerprint: fp, Tags: tags}
}
