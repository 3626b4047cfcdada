package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/gallery"
)

// Handler holds API route handlers.
type Handler struct {
	ctrl  *gallery.Controller
	query *gallery.Query
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *gallery.Controller, query *gallery.Query) *Handler {
	return &Handler{ctrl: ctrl, query: query}
}

// photoPath extracts the photo path from the URL (everything after the
// mount point). Supports encoded slashes from generated clients
// (e.g. albums%2Fphoto.jpg).
func photoPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("photo changed on disk; re-fetch and retry"))
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusLocked, errorBody("another edit is in flight; retry"))
	case errors.Is(err, apperr.ErrWriteRejected):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotAnImage):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListPhotos handles GET /photos.
//
//	@Summary		List photos in stable path order with pagination
//	@Tags			photos
//	@Produce		json
//	@Param			page		query		int	false	"Page number (1-based)"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	PhotoListResponse
//	@Security		BearerAuth
//	@Router			/photos [get]
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	photos := h.query.List(page, pageSize)
	items := make([]PhotoDetail, 0, len(photos))
	for _, p := range photos {
		sub, _ := h.query.Submission(p.Path)
		items = append(items, photoDetail(p, sub))
	}
	writeJSON(w, http.StatusOK, PhotoListResponse{Photos: items, Total: h.query.Count()})
}

// GetPhoto handles GET /photos/*.
//
//	@Summary		Get a single photo by path
//	@Tags			photos
//	@Produce		json
//	@Param			path	path		string	true	"Photo path"
//	@Success		200		{object}	PhotoDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos/{path} [get]
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	path := photoPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	photo, err := h.query.Get(path)
	if err != nil {
		writeDomainError(w, path, err)
		return
	}
	sub, _ := h.query.Submission(path)
	writeJSON(w, http.StatusOK, photoDetail(photo, sub))
}

// UpdateTags handles PUT /photos/*.
//
//	@Summary		Replace a photo's caption and keywords
//	@Tags			photos
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Photo path"
//	@Param			body	body		UpdateTagsRequest	true	"New tags"
//	@Success		200		{object}	PhotoDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos/{path} [put]
func (h *Handler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := photoPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var req UpdateTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	photo, err := h.ctrl.ApplyEdit(path, modelTags(req))
	if err != nil {
		writeDomainError(w, path, err)
		return
	}
	sub, _ := h.query.Submission(path)
	writeJSON(w, http.StatusOK, photoDetail(photo, sub))
}

// DeletePhoto handles DELETE /photos/*.
//
//	@Summary		Delete a photo
//	@Tags			photos
//	@Param			path	path	string	true	"Photo path"
//	@Success		204		"Photo deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos/{path} [delete]
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	path := photoPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.Delete(path); err != nil {
		writeDomainError(w, path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
//
//	@Summary		Search captions and keywords
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Keyword or caption fragment"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results := []PhotoDetail{}
	for p := range h.query.Search(q) {
		sub, _ := h.query.Submission(p.Path)
		results = append(results, photoDetail(p, sub))
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Resync handles POST /resync: an explicit reconciliation request.
//
//	@Summary		Reconcile the index with the image directory
//	@Tags			photos
//	@Success		200	"Resync complete"
//	@Security		BearerAuth
//	@Router			/resync [post]
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Resync(); err != nil {
		slog.Error("resync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "photos": h.query.Count()})
}
