package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	if err := s.Write("photo.jpg", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("photo.jpg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %x", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("albums/1987/reunion.jpg", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("albums/1987/reunion.jpg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.jpg", []byte("bye"))
	if err := s.Delete("del.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.jpg"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListFiltersNonImages(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.jpg", []byte("a"))
	_ = s.Write("sub/b.jpeg", []byte("b"))
	_ = s.Write("c.png", []byte("c"))
	_ = s.Write("readme.txt", []byte("not an image"))
	_ = s.Write("catalog.db", []byte("sidecar"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d, want 3", len(items))
	}
	for _, it := range items {
		if it.Fingerprint.Size == 0 {
			t.Errorf("%s: zero size fingerprint", it.Path)
		}
		if it.Fingerprint.ModTime.IsZero() {
			t.Errorf("%s: zero mtime fingerprint", it.Path)
		}
		if filepath.ToSlash(it.Path) != it.Path {
			t.Errorf("%s: path not slash-normalized", it.Path)
		}
	}
}

func TestStat(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("x.jpg", []byte("12345"))
	fp, err := s.Stat("x.jpg")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fp.Size != 5 {
		t.Errorf("size = %d, want 5", fp.Size)
	}
	if _, err := s.Stat("missing.jpg"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.jpg",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempLibrary(t)
	original := []byte("original content")
	_ = s.Write("atomic.jpg", original)

	updated := []byte("updated content")
	if err := s.Write("atomic.jpg", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.jpg")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".sowilo-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestIsImageCandidate(t *testing.T) {
	for _, name := range []string{"a.jpg", "B.JPEG", "c.png", "d.tif", "e.gif"} {
		if !IsImageCandidate(name) {
			t.Errorf("%s should be a candidate", name)
		}
	}
	for _, name := range []string{"a.txt", "b.db", "noext", "c.jpg.bak"} {
		if IsImageCandidate(name) {
			t.Errorf("%s should not be a candidate", name)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/sowilo-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "sowilo-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
