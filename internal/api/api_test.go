package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/sowilo/internal/codec"
	"github.com/starford/sowilo/internal/gallery"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/testutil"
)

// testEnv sets up a temp library, engine, and router. authToken == ""
// means auth disabled.
func testEnv(t *testing.T, authToken string) (*gallery.Controller, http.Handler, *storage.FS) {
	t.Helper()

	_, store := testutil.TestLibrary(t)
	adapter := codec.NewAdapter(store)
	ix := index.New(store, adapter, testutil.DiscardLogger())
	cat := testutil.TestCatalog(t)

	ctrl := gallery.NewController(ix, adapter, store, cat, testutil.DiscardLogger())
	query := gallery.NewQuery(ix, cat)
	if err := ctrl.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	router := NewRouter(ctrl, query, store, authToken != "", authToken)
	return ctrl, router, store
}

func seedPhoto(t *testing.T, ctrl *gallery.Controller, store *storage.FS, path string, tags models.Tags) {
	t.Helper()
	testutil.WritePhoto(t, store, path, tags)
	if err := ctrl.Resync(); err != nil {
		t.Fatalf("Resync: %v", err)
	}
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetPhoto(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "albums/beach.jpg", models.Tags{
		Caption:  "Low tide",
		Keywords: []string{"beach"},
	})

	w := doJSON(t, router, http.MethodGet, "/photos/albums/beach.jpg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, body = %s", w.Code, w.Body.String())
	}
	var detail PhotoDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Path != "albums/beach.jpg" || detail.Caption != "Low tide" {
		t.Errorf("detail = %+v", detail)
	}
	if len(detail.Keywords) != 1 || detail.Keywords[0] != "beach" {
		t.Errorf("keywords = %v", detail.Keywords)
	}
	if detail.SizeBytes == 0 {
		t.Error("size_bytes missing")
	}
}

func TestGetPhoto_NotFound(t *testing.T) {
	_, router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/photos/nope.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing photo = %d, want 404", w.Code)
	}
}

func TestUpdateTags(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "p.jpg", models.Tags{Caption: "old"})

	w := doJSON(t, router, http.MethodPut, "/photos/p.jpg",
		UpdateTagsRequest{Caption: "new", Keywords: []string{"tagged"}})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var detail PhotoDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Caption != "new" || len(detail.Keywords) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	// Verify through a fresh GET.
	w = doJSON(t, router, http.MethodGet, "/photos/p.jpg", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Caption != "new" {
		t.Errorf("caption after re-fetch = %q", detail.Caption)
	}
}

func TestUpdateTags_Conflict(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "p.jpg", models.Tags{Caption: "v1"})

	// Out-of-band rewrite.
	testutil.WritePhoto(t, store, "p.jpg", models.Tags{Caption: "rewritten outside the engine"})

	w := doJSON(t, router, http.MethodPut, "/photos/p.jpg", UpdateTagsRequest{Caption: "mine"})
	if w.Code != http.StatusConflict {
		t.Errorf("conflicting update = %d, want 409", w.Code)
	}

	// Retry succeeds now that the index is refreshed.
	w = doJSON(t, router, http.MethodPut, "/photos/p.jpg", UpdateTagsRequest{Caption: "mine"})
	if w.Code != http.StatusOK {
		t.Errorf("retry = %d, want 200", w.Code)
	}
}

func TestUpdateTags_RejectedWrite(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	_ = store.Write("p.png", []byte("\x89PNG\r\n\x1a\nrest"))
	if err := ctrl.Resync(); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPut, "/photos/p.png", UpdateTagsRequest{Caption: "x"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("read-only format update = %d, want 422", w.Code)
	}
}

func TestUpdateTags_InvalidBody(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "p.jpg", models.Tags{})

	req := httptest.NewRequest(http.MethodPut, "/photos/p.jpg", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", w.Code)
	}
}

func TestListPhotos(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "a.jpg", models.Tags{})
	seedPhoto(t, ctrl, store, "b.jpg", models.Tags{})
	seedPhoto(t, ctrl, store, "c.jpg", models.Tags{})

	w := doJSON(t, router, http.MethodGet, "/photos?page=1&page_size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp PhotoListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Photos) != 2 || resp.Total != 3 {
		t.Errorf("photos = %d, total = %d", len(resp.Photos), resp.Total)
	}
	if resp.Photos[0].Path != "a.jpg" || resp.Photos[1].Path != "b.jpg" {
		t.Errorf("order = %s, %s", resp.Photos[0].Path, resp.Photos[1].Path)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "hit.jpg", models.Tags{Keywords: []string{"uniquetoken"}})
	seedPhoto(t, ctrl, store, "miss.jpg", models.Tags{Caption: "nothing here"})

	w := doJSON(t, router, http.MethodGet, "/search?q=uniquetoken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "hit.jpg" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestDeletePhoto(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "bye.jpg", models.Tags{})

	w := doJSON(t, router, http.MethodDelete, "/photos/bye.jpg", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/photos/bye.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestResyncEndpoint(t *testing.T) {
	_, router, store := testEnv(t, "")
	testutil.WritePhoto(t, store, "late.jpg", models.Tags{})

	w := doJSON(t, router, http.MethodPost, "/resync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resync = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["photos"].(float64) != 1 {
		t.Errorf("photos = %v", resp["photos"])
	}
}

func TestServeFile(t *testing.T) {
	ctrl, router, store := testEnv(t, "")
	seedPhoto(t, ctrl, store, "raw.jpg", models.Tags{})

	w := doJSON(t, router, http.MethodGet, "/files/raw.jpg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("serve = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte{0xFF, 0xD8}) {
		t.Error("body is not JPEG bytes")
	}
}

func TestServeFile_OnlyIndexedPhotos(t *testing.T) {
	_, router, store := testEnv(t, "")
	// On disk but never indexed (resync not run).
	_ = store.Write("hidden.jpg", testutil.JPEG())

	w := doJSON(t, router, http.MethodGet, "/files/hidden.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unindexed file = %d, want 404", w.Code)
	}
}

func TestUpload(t *testing.T) {
	_, router, _ := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "reunion.jpg")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(testutil.JPEG())
	_ = mw.WriteField("title", "Reunion")
	_ = mw.WriteField("caption", "On the porch")
	_ = mw.WriteField("keywords", "family, porch , family")
	_ = mw.WriteField("submitted_by", "ruth")
	_ = mw.WriteField("approximate_date", "1987")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}

	var detail PhotoDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Caption != "On the porch" {
		t.Errorf("caption = %q", detail.Caption)
	}
	if len(detail.Keywords) != 2 {
		t.Errorf("keywords = %v", detail.Keywords)
	}
	if detail.Submission == nil || detail.Submission.Title != "Reunion" {
		t.Errorf("submission = %+v", detail.Submission)
	}

	// Uploaded photo is immediately retrievable.
	w2 := doJSON(t, router, http.MethodGet, "/photos/"+detail.Path, nil)
	if w2.Code != http.StatusOK {
		t.Errorf("get uploaded = %d", w2.Code)
	}
}

func TestUpload_MissingField(t *testing.T) {
	_, router, _ := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestUpload_BadExtension(t *testing.T) {
	_, router, _ := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("photo", "notes.txt")
	_, _ = part.Write([]byte("text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("bad extension = %d, want 415", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/photos", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/photos", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}
