// Package storage defines the image-library file-system abstraction.
package storage

import "github.com/starford/sowilo/internal/models"

// Provider is the interface for library file operations. All paths are
// relative to the library root.
type Provider interface {
	// List walks dir and returns path + fingerprint for every candidate
	// image file under it.
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Stat returns the current fingerprint of the file at path.
	Stat(path string) (models.Fingerprint, error)
	// Delete removes the file at path.
	Delete(path string) error
}
