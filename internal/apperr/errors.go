// Package apperr defines the sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a photo path is absent from the index.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an edit races an out-of-band file change.
	ErrConflict = errors.New("concurrent modification")
	// ErrBusy is returned when another edit for the same path is in flight.
	ErrBusy = errors.New("busy")
	// ErrAlreadyExists is returned when an upload targets an existing path.
	ErrAlreadyExists = errors.New("already exists")

	// Codec read failures. Photos stay listed in a degraded state.
	ErrNotAnImage      = errors.New("not a supported image")
	ErrCorruptMetadata = errors.New("corrupt metadata segment")
	ErrUnreadable      = errors.New("unreadable")

	// Codec write failures. The on-disk file is left unchanged.
	ErrWriteRejected = errors.New("write rejected")
	ErrUnwritable    = errors.New("unwritable")
)
