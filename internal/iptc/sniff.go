package iptc

import "bytes"

// Format identifies a container format detected by file signature.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatTIFF
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatGIF:
		return "GIF"
	case FormatTIFF:
		return "TIFF"
	default:
		return "unknown"
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Sniff determines the container format from the leading magic bytes.
// File extensions are deliberately not consulted.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return FormatPNG
	case len(data) >= 4 && string(data[:4]) == "GIF8":
		return FormatGIF
	case len(data) >= 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"):
		return FormatTIFF
	default:
		return FormatUnknown
	}
}
