package index

import (
	"iter"
	"strings"

	"github.com/starford/sowilo/internal/models"
)

// All returns a restartable sequence of every indexed photo, ordered by
// path ascending. The snapshot is taken when iteration starts, so a
// sequence can be ranged again after index mutations to observe them.
func (ix *Index) All() iter.Seq[models.Photo] {
	return func(yield func(models.Photo) bool) {
		for _, p := range ix.snapshot() {
			if !yield(p) {
				return
			}
		}
	}
}

// Search returns the photos matching keyword, ordered by path ascending:
// a case-insensitive substring match against the caption, or a
// case-insensitive membership match against the keyword set.
func (ix *Index) Search(keyword string) iter.Seq[models.Photo] {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	return func(yield func(models.Photo) bool) {
		if needle == "" {
			return
		}
		for _, p := range ix.snapshot() {
			if !matches(p.Tags, needle) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// matches reports whether tags hit a lower-cased needle.
func matches(t models.Tags, needle string) bool {
	if strings.Contains(strings.ToLower(t.Caption), needle) {
		return true
	}
	return t.HasKeyword(needle)
}
