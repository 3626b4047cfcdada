// Package testutil provides shared test helpers for setting up libraries,
// ledgers, and JPEG fixtures.
package testutil

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/iptc"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestCatalog creates a temporary SQLite ledger that is automatically
// cleaned up.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sowilo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// JPEG returns a fresh minimal JPEG: SOI, a JFIF APP0 segment, and an
// SOS-to-EOI trailer standing in for the entropy-coded scan.
func JPEG() []byte {
	var out []byte
	out = append(out, 0xFF, 0xD8) // SOI
	app0 := []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	out = append(out, 0xFF, 0xE0)
	out = binary.BigEndian.AppendUint16(out, uint16(len(app0)+2))
	out = append(out, app0...)
	// SOS header plus fake scan bytes; everything from the SOS marker on
	// is opaque to the metadata codec.
	out = append(out, 0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00)
	out = append(out, 0x12, 0x34, 0x56, 0x78)
	out = append(out, 0xFF, 0xD9) // EOI
	return out
}

// JPEGWithTags returns a minimal JPEG carrying the given tags in an
// embedded IPTC block.
func JPEGWithTags(t *testing.T, tags models.Tags) []byte {
	t.Helper()
	data, err := iptc.Encode(JPEG(), iptc.Tags{Caption: tags.Caption, Keywords: tags.Keywords})
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return data
}

// WritePhoto stores a minimal tagged JPEG at path in the library.
func WritePhoto(t *testing.T, store storage.Provider, path string, tags models.Tags) {
	t.Helper()
	if err := store.Write(path, JPEGWithTags(t, tags)); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
