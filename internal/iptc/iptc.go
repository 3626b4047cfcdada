// Package iptc reads and writes IPTC IIM metadata embedded in image
// containers. It implements the tag-codec capability consumed by the
// codec adapter: container formats are detected by signature, and JPEG
// rewrites replace only the APP13 metadata segment, leaving pixel data
// and unmodeled resources untouched.
package iptc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks data whose signature matches no known container.
	ErrUnsupported = errors.New("iptc: unsupported container")
	// ErrCorrupt marks a malformed segment, resource block, or dataset.
	ErrCorrupt = errors.New("iptc: corrupt metadata")
	// ErrTooLong marks a value exceeding a format-imposed length limit.
	ErrTooLong = errors.New("iptc: value too long")
	// ErrReadOnlyFormat marks a recognized container that cannot carry
	// an IPTC block.
	ErrReadOnlyFormat = errors.New("iptc: format cannot carry IPTC")
)

// Tags is the wire-level view of the modeled IPTC datasets.
type Tags struct {
	Caption  string
	Keywords []string
}

// Decode extracts the IPTC tags from an image file's bytes. Containers
// that are recognized but carry no IPTC standard (PNG, GIF, TIFF in this
// codec) yield empty Tags.
func Decode(data []byte) (Tags, error) {
	switch Sniff(data) {
	case FormatJPEG:
		return decodeJPEG(data)
	case FormatPNG, FormatGIF, FormatTIFF:
		return Tags{}, nil
	default:
		return Tags{}, ErrUnsupported
	}
}

// Encode returns a copy of data with its embedded tags replaced by t.
func Encode(data []byte, t Tags) ([]byte, error) {
	switch format := Sniff(data); format {
	case FormatJPEG:
		return encodeJPEG(data, t)
	case FormatPNG, FormatGIF, FormatTIFF:
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyFormat, format)
	default:
		return nil, ErrUnsupported
	}
}
