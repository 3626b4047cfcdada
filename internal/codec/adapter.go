// Package codec adapts the byte-level IPTC codec to the engine: it maps
// codec failures onto the apperr taxonomy, canonicalizes tags, and makes
// writes atomic through the storage provider.
package codec

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/iptc"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// Adapter is the stateless transform between image files and Tags.
type Adapter struct {
	store storage.Provider
}

// NewAdapter creates an adapter reading and writing through store.
func NewAdapter(store storage.Provider) *Adapter {
	return &Adapter{store: store}
}

// Read returns the tags embedded in the image at path.
//
// Failure modes: ErrUnreadable on I/O failure, ErrNotAnImage when the file
// is not a supported container, ErrCorruptMetadata when the tag segment is
// malformed.
func (a *Adapter) Read(path string) (models.Tags, error) {
	data, err := a.store.Read(path)
	if err != nil {
		return models.Tags{}, fmt.Errorf("%w: %v", apperr.ErrUnreadable, err)
	}
	t, err := iptc.Decode(data)
	if err != nil {
		return models.Tags{}, mapReadErr(path, err)
	}
	return models.Tags{Caption: t.Caption, Keywords: t.Keywords}, nil
}

// Write embeds tags into the image at path and returns the normalized
// value that was persisted. The rewrite is atomic: on any failure the
// on-disk file is left byte-identical to its pre-write state.
//
// Length limits are validated up front; oversized values fail with
// ErrWriteRejected instead of being truncated.
func (a *Adapter) Write(path string, tags models.Tags) (models.Tags, error) {
	tags = tags.Normalize()
	if len(tags.Caption) > iptc.MaxCaptionLen {
		return models.Tags{}, fmt.Errorf("%w: caption is %d bytes, limit %d",
			apperr.ErrWriteRejected, len(tags.Caption), iptc.MaxCaptionLen)
	}
	for _, kw := range tags.Keywords {
		if len(kw) > iptc.MaxKeywordLen {
			return models.Tags{}, fmt.Errorf("%w: keyword %q is %d bytes, limit %d",
				apperr.ErrWriteRejected, kw, len(kw), iptc.MaxKeywordLen)
		}
	}

	data, err := a.store.Read(path)
	if err != nil {
		return models.Tags{}, fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}
	encoded, err := iptc.Encode(data, iptc.Tags{Caption: tags.Caption, Keywords: tags.Keywords})
	if err != nil {
		return models.Tags{}, mapWriteErr(path, err)
	}
	if err := a.store.Write(path, encoded); err != nil {
		return models.Tags{}, fmt.Errorf("%w: %v", apperr.ErrUnwritable, err)
	}
	return tags, nil
}

func mapReadErr(path string, err error) error {
	switch {
	case errors.Is(err, iptc.ErrUnsupported):
		return fmt.Errorf("%w: %s", apperr.ErrNotAnImage, path)
	case errors.Is(err, iptc.ErrCorrupt):
		return fmt.Errorf("%w: %s: %v", apperr.ErrCorruptMetadata, path, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", apperr.ErrUnreadable, path)
	default:
		return fmt.Errorf("%w: %s: %v", apperr.ErrUnreadable, path, err)
	}
}

func mapWriteErr(path string, err error) error {
	switch {
	case errors.Is(err, iptc.ErrTooLong), errors.Is(err, iptc.ErrReadOnlyFormat):
		return fmt.Errorf("%w: %s: %v", apperr.ErrWriteRejected, path, err)
	case errors.Is(err, iptc.ErrUnsupported), errors.Is(err, iptc.ErrCorrupt):
		return fmt.Errorf("%w: %s: %v", apperr.ErrWriteRejected, path, err)
	default:
		return fmt.Errorf("%w: %s: %v", apperr.ErrUnwritable, path, err)
	}
}
