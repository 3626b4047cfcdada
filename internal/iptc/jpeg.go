package iptc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	markerSOI   = 0xD8
	markerSOS   = 0xDA
	markerEOI   = 0xD9
	markerAPP0  = 0xE0
	markerAPP13 = 0xED
)

var photoshopHeader = []byte("Photoshop 3.0\x00")

const iptcResourceID = 0x0404

// segment is one marker segment from the JPEG header area (before SOS).
type segment struct {
	marker byte
	data   []byte // payload without the two length bytes
}

// jpegFile is a JPEG split into its header segments and the untouched
// remainder starting at the SOS marker. Pixel data lives entirely in the
// trailer and is never rewritten.
type jpegFile struct {
	segments []segment
	trailer  []byte
}

// parseJPEG splits data into header segments and the entropy-coded trailer.
func parseJPEG(data []byte) (*jpegFile, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrCorrupt)
	}
	f := &jpegFile{}
	off := 2
	for {
		if off >= len(data) {
			return nil, fmt.Errorf("%w: unexpected end of file at offset %d", ErrCorrupt, off)
		}
		if data[off] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker at offset %d", ErrCorrupt, off)
		}
		// Skip fill bytes.
		for off < len(data) && data[off] == 0xFF {
			off++
		}
		if off >= len(data) {
			return nil, fmt.Errorf("%w: truncated marker at end of file", ErrCorrupt)
		}
		marker := data[off]
		if marker == markerSOS {
			// Everything from here on (including the SOS segment and
			// the entropy-coded scan) is copied verbatim.
			f.trailer = data[off-1:]
			return f, nil
		}
		if marker == markerEOI {
			f.trailer = data[off-1:]
			return f, nil
		}
		off++
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment length at offset %d", ErrCorrupt, off)
		}
		segLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		if segLen < 2 || off+segLen > len(data) {
			return nil, fmt.Errorf("%w: segment overruns file at offset %d", ErrCorrupt, off)
		}
		f.segments = append(f.segments, segment{
			marker: marker,
			data:   data[off+2 : off+segLen],
		})
		off += segLen
	}
}

// marshal reassembles the JPEG byte stream.
func (f *jpegFile) marshal() ([]byte, error) {
	var size int
	for _, s := range f.segments {
		size += 4 + len(s.data)
	}
	out := make([]byte, 0, 2+size+len(f.trailer))
	out = append(out, 0xFF, markerSOI)
	for _, s := range f.segments {
		if len(s.data)+2 > 0xFFFF {
			return nil, fmt.Errorf("%w: segment 0x%02x payload exceeds 64 KB", ErrTooLong, s.marker)
		}
		out = append(out, 0xFF, s.marker)
		out = binary.BigEndian.AppendUint16(out, uint16(len(s.data)+2))
		out = append(out, s.data...)
	}
	out = append(out, f.trailer...)
	return out, nil
}

// resource is one Photoshop image resource block inside an APP13 segment.
type resource struct {
	id   uint16
	name []byte // raw Pascal name including its even-length padding
	data []byte
}

// parseResources decodes the 8BIM resource blocks following the
// "Photoshop 3.0" header.
func parseResources(data []byte) ([]resource, error) {
	var out []resource
	off := 0
	for off < len(data) {
		if off+4 > len(data) || string(data[off:off+4]) != "8BIM" {
			return nil, fmt.Errorf("%w: bad resource signature at offset %d", ErrCorrupt, off)
		}
		off += 4
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated resource id", ErrCorrupt)
		}
		id := binary.BigEndian.Uint16(data[off : off+2])
		off += 2
		if off >= len(data) {
			return nil, fmt.Errorf("%w: truncated resource name", ErrCorrupt)
		}
		nameLen := 1 + int(data[off])
		if nameLen%2 != 0 {
			nameLen++ // padded to even
		}
		if off+nameLen > len(data) {
			return nil, fmt.Errorf("%w: resource name overruns segment", ErrCorrupt)
		}
		name := data[off : off+nameLen]
		off += nameLen
		if off+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated resource size", ErrCorrupt)
		}
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+size > len(data) {
			return nil, fmt.Errorf("%w: resource data overruns segment", ErrCorrupt)
		}
		out = append(out, resource{id: id, name: name, data: data[off : off+size]})
		off += size
		if size%2 != 0 {
			off++ // data padded to even
		}
	}
	return out, nil
}

// marshalResources encodes resource blocks back to the APP13 payload
// following the Photoshop header.
func marshalResources(resources []resource) []byte {
	var out []byte
	out = append(out, photoshopHeader...)
	for _, r := range resources {
		out = append(out, "8BIM"...)
		out = binary.BigEndian.AppendUint16(out, r.id)
		out = append(out, r.name...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(r.data)))
		out = append(out, r.data...)
		if len(r.data)%2 != 0 {
			out = append(out, 0x00)
		}
	}
	return out
}

// emptyResourceName is a zero-length Pascal name padded to two bytes.
var emptyResourceName = []byte{0x00, 0x00}

// findAPP13 returns the index of the Photoshop APP13 segment, or -1.
func (f *jpegFile) findAPP13() int {
	for i, s := range f.segments {
		if s.marker == markerAPP13 && bytes.HasPrefix(s.data, photoshopHeader) {
			return i
		}
	}
	return -1
}

// decodeJPEG extracts the IPTC tags embedded in a JPEG, returning empty
// Tags when the file carries no APP13/IPTC block.
func decodeJPEG(data []byte) (Tags, error) {
	f, err := parseJPEG(data)
	if err != nil {
		return Tags{}, err
	}
	idx := f.findAPP13()
	if idx < 0 {
		return Tags{}, nil
	}
	resources, err := parseResources(f.segments[idx].data[len(photoshopHeader):])
	if err != nil {
		return Tags{}, err
	}
	for _, r := range resources {
		if r.id != iptcResourceID {
			continue
		}
		sets, err := parseIIM(r.data)
		if err != nil {
			return Tags{}, err
		}
		return tagsFromIIM(sets), nil
	}
	return Tags{}, nil
}

// encodeJPEG returns a copy of data with its IPTC block replaced by t.
// All other segments, resources, and datasets are preserved byte-for-byte;
// pixel data is never touched.
func encodeJPEG(data []byte, t Tags) ([]byte, error) {
	f, err := parseJPEG(data)
	if err != nil {
		return nil, err
	}

	var resources []resource
	idx := f.findAPP13()
	if idx >= 0 {
		resources, err = parseResources(f.segments[idx].data[len(photoshopHeader):])
		if err != nil {
			return nil, err
		}
	}

	var sets []dataset
	iptcIdx := -1
	for i, r := range resources {
		if r.id == iptcResourceID {
			iptcIdx = i
			if sets, err = parseIIM(r.data); err != nil {
				return nil, err
			}
			break
		}
	}

	sets, err = applyTags(sets, t)
	if err != nil {
		return nil, err
	}
	block := marshalIIM(sets)

	if iptcIdx >= 0 {
		resources[iptcIdx].data = block
	} else {
		resources = append(resources, resource{id: iptcResourceID, name: emptyResourceName, data: block})
	}

	payload := marshalResources(resources)
	if len(payload)+2 > 0xFFFF {
		return nil, fmt.Errorf("%w: APP13 payload would exceed 64 KB", ErrTooLong)
	}

	if idx >= 0 {
		f.segments[idx].data = payload
	} else {
		f.segments = insertAfterAPPn(f.segments, segment{marker: markerAPP13, data: payload})
	}
	return f.marshal()
}

// insertAfterAPPn places seg after the last leading APPn segment so the
// JFIF/Exif headers keep their conventional position.
func insertAfterAPPn(segments []segment, seg segment) []segment {
	pos := 0
	for i, s := range segments {
		if s.marker >= markerAPP0 && s.marker <= 0xEF {
			pos = i + 1
		} else {
			break
		}
	}
	out := make([]segment, 0, len(segments)+1)
	out = append(out, segments[:pos]...)
	out = append(out, seg)
	out = append(out, segments[pos:]...)
	return out
}
