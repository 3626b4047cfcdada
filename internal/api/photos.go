package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/starford/sowilo/internal/gallery"
	"github.com/starford/sowilo/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// splitKeywords parses the comma-separated keywords form field.
func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Upload handles POST /photos (multipart/form-data, field "photo").
//
//	@Summary		Submit a new photo with caption and keywords
//	@Tags			photos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			photo				formData	file	true	"Image file"
//	@Param			title				formData	string	false	"Title"
//	@Param			caption				formData	string	false	"Caption"
//	@Param			keywords			formData	string	false	"Comma-separated keywords"
//	@Param			submitted_by		formData	string	false	"Submitter"
//	@Param			approximate_date	formData	string	false	"Approximate date the photo was taken"
//	@Success		201	{object}	PhotoDetail
//	@Failure		400	{object}	errResponse
//	@Failure		415	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'photo' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	photo, err := h.ctrl.Upload(header.Filename, data, gallery.Submission{
		Title:           r.FormValue("title"),
		Caption:         r.FormValue("caption"),
		Keywords:        splitKeywords(r.FormValue("keywords")),
		SubmittedBy:     r.FormValue("submitted_by"),
		ApproximateDate: r.FormValue("approximate_date"),
	})
	if err != nil {
		writeDomainError(w, header.Filename, err)
		return
	}

	sub, _ := h.query.Submission(photo.Path)
	writeJSON(w, http.StatusCreated, photoDetail(photo, sub))
}

// FileHandler streams raw image bytes for indexed photos.
type FileHandler struct {
	query *gallery.Query
	store storage.Provider
}

// NewFileHandler creates a handler serving files through store.
func NewFileHandler(query *gallery.Query, store storage.Provider) *FileHandler {
	return &FileHandler{query: query, store: store}
}

// ServeFile handles GET /files/*. Only indexed photos are served; the
// index lookup doubles as the traversal guard.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	path := photoPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if _, err := h.query.Get(path); err != nil {
		writeDomainError(w, path, err)
		return
	}
	data, err := h.store.Read(path)
	if err != nil {
		writeDomainError(w, path, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
