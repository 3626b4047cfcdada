package gallery

import (
	"errors"
	"iter"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/models"
)

// DefaultPageSize is used when a list request gives no page size.
const DefaultPageSize = 50

// Query is the read-only API over the index. It never mutates state and
// may be called concurrently with controller writes.
type Query struct {
	ix  *index.Index
	cat *catalog.DB
}

// NewQuery creates a query service. cat may be nil.
func NewQuery(ix *index.Index, cat *catalog.DB) *Query {
	return &Query{ix: ix, cat: cat}
}

// Get returns the indexed photo at path.
func (q *Query) Get(path string) (models.Photo, error) {
	return q.ix.Get(path)
}

// Count returns the number of indexed photos.
func (q *Query) Count() int {
	return q.ix.Len()
}

// List returns one page of photos in stable path order. page is 1-based;
// out-of-range pages yield an empty slice, never an error.
func (q *Query) List(page, pageSize int) []models.Photo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	skip := (page - 1) * pageSize

	out := make([]models.Photo, 0, pageSize)
	for p := range q.ix.All() {
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, p)
		if len(out) == pageSize {
			break
		}
	}
	return out
}

// Search returns the photos matching keyword, ordered by path.
func (q *Query) Search(keyword string) iter.Seq[models.Photo] {
	return q.ix.Search(keyword)
}

// Submission returns the catalog row for path, or nil when no ledger is
// configured or the photo was never submitted through the gallery.
func (q *Query) Submission(path string) (*catalog.Submission, error) {
	if q.cat == nil {
		return nil, nil
	}
	s, err := q.cat.Get(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}
