package api

import (
	"time"

	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/models"
)

// PhotoDetail is the full photo representation returned by the API.
type PhotoDetail struct {
	Path       string              `json:"path"`
	Caption    string              `json:"caption"`
	Keywords   []string            `json:"keywords"`
	SizeBytes  int64               `json:"size_bytes"`
	ModifiedAt time.Time           `json:"modified_at"`
	Degraded   bool                `json:"degraded,omitempty"`
	Submission *catalog.Submission `json:"submission,omitempty"`
}

// UpdateTagsRequest is the request body for editing a photo's tags.
type UpdateTagsRequest struct {
	Caption  string   `json:"caption"`
	Keywords []string `json:"keywords"`
}

// PhotoListResponse wraps paginated photo listings.
type PhotoListResponse struct {
	Photos []PhotoDetail `json:"photos"`
	Total  int           `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []PhotoDetail `json:"results"`
}

// modelTags converts the request body to the domain Tags value.
func modelTags(req UpdateTagsRequest) models.Tags {
	return models.Tags{Caption: req.Caption, Keywords: req.Keywords}
}

// photoDetail converts the domain photo (plus optional submission row)
// to its API shape.
func photoDetail(p models.Photo, sub *catalog.Submission) PhotoDetail {
	keywords := p.Tags.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return PhotoDetail{
		Path:       p.Path,
		Caption:    p.Tags.Caption,
		Keywords:   keywords,
		SizeBytes:  p.Fingerprint.Size,
		ModifiedAt: p.Fingerprint.ModTime,
		Degraded:   p.Degraded,
		Submission: sub,
	}
}
