package index

import (
	"log/slog"

	"github.com/starford/sowilo/internal/models"
)

// Scan enumerates every image file under the library root, reads its tags
// through the codec adapter, and replaces the mapping wholesale. Files
// whose metadata cannot be read are kept as degraded entries.
func (ix *Index) Scan() error {
	infos, err := ix.store.List("")
	if err != nil {
		return err
	}

	fresh := make(map[string]models.Photo, len(infos))
	for _, info := range infos {
		fresh[info.Path] = ix.load(info.Path, info.Fingerprint)
	}

	ix.mu.Lock()
	ix.photos = fresh
	ix.mu.Unlock()

	ix.logger.Info("index: scan complete", slog.Int("photos", len(fresh)))
	return nil
}

// Reconcile brings the index up to date against the current directory
// listing without re-reading unchanged files:
//   - new files and files with a changed fingerprint are (re)loaded
//   - entries whose backing file disappeared are removed
//
// It returns the number of entries added or refreshed and removed.
func (ix *Index) Reconcile() (updated, removed int, err error) {
	infos, err := ix.store.List("")
	if err != nil {
		return 0, 0, err
	}
	cached := ix.Fingerprints()

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Path] = struct{}{}
		if fp, ok := cached[info.Path]; ok && fp.Matches(info.Fingerprint) {
			continue
		}
		ix.Upsert(ix.load(info.Path, info.Fingerprint))
		updated++
	}

	for path := range cached {
		if _, ok := disk[path]; !ok {
			ix.Remove(path)
			removed++
			ix.logger.Debug("index: removed stale entry", slog.String("path", path))
		}
	}
	return updated, removed, nil
}
