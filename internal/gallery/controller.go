// Package gallery holds the synchronization controller that owns all
// writes to the metadata index, and the read-only query service consumed
// by the presentation layer.
package gallery

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/codec"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// Controller orchestrates index population, resync, and write-through
// edits. It is the exclusive writer of the index.
type Controller struct {
	ix     *index.Index
	codec  *codec.Adapter
	store  storage.Provider
	cat    *catalog.DB
	logger *slog.Logger

	locks *pathLocks

	// resyncMu keeps scan/resync from running concurrently; the
	// singleflight group collapses callers that pile up behind one.
	resyncMu    sync.Mutex
	resyncGroup singleflight.Group
}

// NewController creates a controller over the given index and stores.
// cat may be nil when no submission ledger is configured.
func NewController(ix *index.Index, adapter *codec.Adapter, store storage.Provider, cat *catalog.DB, logger *slog.Logger) *Controller {
	return &Controller{
		ix:     ix,
		codec:  adapter,
		store:  store,
		cat:    cat,
		logger: logger,
		locks:  newPathLocks(),
	}
}

// Scan performs the initial full directory scan.
func (c *Controller) Scan() error {
	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()
	return c.ix.Scan()
}

// ApplyEdit persists newTags into the photo at path and updates the index.
//
// The edit is optimistic: if the file on disk changed since it was last
// indexed, the call fails with ErrConflict and the index is refreshed so
// the caller can re-fetch and retry. A concurrent edit to the same path
// fails fast with ErrBusy. On codec failure the file is unchanged
// (atomic write) and the index is left alone, so the in-memory state
// keeps reflecting the true on-disk state.
func (c *Controller) ApplyEdit(path string, newTags models.Tags) (models.Photo, error) {
	if !c.locks.tryAcquire(path) {
		return models.Photo{}, fmt.Errorf("%w: %s", apperr.ErrBusy, path)
	}
	defer c.locks.release(path)

	refreshed, err := c.ix.RefreshIfStale(path)
	if err != nil {
		return models.Photo{}, err
	}
	if refreshed {
		return models.Photo{}, fmt.Errorf("%w: %s changed on disk", apperr.ErrConflict, path)
	}

	persisted, err := c.codec.Write(path, newTags)
	if err != nil {
		return models.Photo{}, err
	}
	fp, err := c.store.Stat(path)
	if err != nil {
		return models.Photo{}, fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}

	photo := models.Photo{Path: path, Fingerprint: fp, Tags: persisted}
	c.ix.Upsert(photo)
	c.touchSubmission(path)

	c.logger.Info("gallery: edit applied",
		slog.String("path", path),
		slog.Int("keywords", len(persisted.Keywords)))
	return photo, nil
}

// Resync reconciles the index (and catalog) against the directory,
// picking up files added, removed, or replaced outside the process.
// Concurrent callers share a single reconciliation pass.
func (c *Controller) Resync() error {
	_, err, _ := c.resyncGroup.Do("resync", func() (any, error) {
		c.resyncMu.Lock()
		defer c.resyncMu.Unlock()

		updated, removed, err := c.ix.Reconcile()
		if err != nil {
			return nil, err
		}
		if c.cat != nil {
			keep := make(map[string]struct{})
			for path := range c.ix.Fingerprints() {
				keep[path] = struct{}{}
			}
			pruned, err := c.cat.Prune(keep)
			if err != nil {
				c.logger.Warn("gallery: catalog prune failed", slog.String("error", err.Error()))
			} else if pruned > 0 {
				c.logger.Debug("gallery: pruned catalog rows", slog.Int("count", pruned))
			}
		}
		if updated > 0 || removed > 0 {
			c.logger.Info("gallery: resync",
				slog.Int("updated", updated),
				slog.Int("removed", removed))
		}
		return nil, nil
	})
	return err
}

// Submission carries the upload attributes that accompany a new photo.
type Submission struct {
	Title           string
	Caption         string
	Keywords        []string
	SubmittedBy     string
	ApproximateDate string
}

// Upload stores a new image under a generated name, embeds the submitted
// tags, records the submission in the catalog, and indexes the photo.
// On codec failure the stored file is removed again so no half-submitted
// photo is left behind.
func (c *Controller) Upload(filename string, data []byte, sub Submission) (models.Photo, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !storage.IsImageCandidate("x" + ext) {
		return models.Photo{}, fmt.Errorf("%w: extension %q", apperr.ErrNotAnImage, ext)
	}
	id := uuid.New()
	path := hex.EncodeToString(id[:]) + ext

	if err := c.store.Write(path, data); err != nil {
		return models.Photo{}, fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}

	tags := models.Tags{Caption: sub.Caption, Keywords: sub.Keywords}.Normalize()
	if tags.Caption != "" || len(tags.Keywords) > 0 {
		persisted, err := c.codec.Write(path, tags)
		if err != nil {
			_ = c.store.Delete(path)
			return models.Photo{}, err
		}
		tags = persisted
	}

	fp, err := c.store.Stat(path)
	if err != nil {
		return models.Photo{}, fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}
	photo := models.Photo{Path: path, Fingerprint: fp, Tags: tags}
	c.ix.Upsert(photo)

	if c.cat != nil {
		now := time.Now().UTC()
		err := c.cat.Upsert(catalog.Submission{
			Path:            path,
			Title:           sub.Title,
			SubmittedBy:     sub.SubmittedBy,
			ApproximateDate: sub.ApproximateDate,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			c.logger.Warn("gallery: record submission failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	c.logger.Info("gallery: photo uploaded",
		slog.String("path", path),
		slog.String("original", filename))
	return photo, nil
}

// Delete removes a photo from disk, index, and catalog.
func (c *Controller) Delete(path string) error {
	if !c.locks.tryAcquire(path) {
		return fmt.Errorf("%w: %s", apperr.ErrBusy, path)
	}
	defer c.locks.release(path)

	if _, err := c.ix.Get(path); err != nil {
		return err
	}
	if err := c.store.Delete(path); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}
	c.ix.Remove(path)
	if c.cat != nil {
		if err := c.cat.Delete(path); err != nil {
			c.logger.Warn("gallery: catalog delete failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// touchSubmission bumps the ledger row's updated_at after an edit.
func (c *Controller) touchSubmission(path string) {
	if c.cat == nil {
		return
	}
	s, err := c.cat.Get(path)
	if err != nil {
		return // photo was never submitted through the gallery
	}
	s.UpdatedAt = time.Now().UTC()
	if err := c.cat.Upsert(*s); err != nil {
		c.logger.Warn("gallery: touch submission failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
