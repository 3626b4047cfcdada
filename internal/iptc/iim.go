package iptc

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// IPTC IIM record 2 datasets carried in the canonical Tags form.
// Everything else found in an existing block is preserved verbatim.
const (
	recordEnvelope    = 1
	recordApplication = 2

	dsCharacterSet = 90  // 1:90 coded character set
	dsKeyword      = 25  // 2:25, repeatable
	dsCaption      = 120 // 2:120 caption/abstract
)

// Format-imposed length limits from the IIM specification. The codec
// rejects oversized values instead of truncating.
const (
	MaxCaptionLen = 2000
	MaxKeywordLen = 64
)

// utf8Escape is the ISO 2022 escape sequence declaring UTF-8 text,
// written as the 1:90 coded character set dataset.
var utf8Escape = []byte{0x1B, '%', 'G'}

// dataset is a single IIM tagged record.
type dataset struct {
	record byte
	number byte
	data   []byte
}

// parseIIM decodes a raw IIM block into its datasets. Each dataset is
// 0x1C, record, number, uint16 length, payload. Extended-length datasets
// (high bit of the length set) are treated as corrupt; none of the
// datasets this codec handles may exceed 32 KB.
func parseIIM(data []byte) ([]dataset, error) {
	var out []dataset
	off := 0
	for off < len(data) {
		if data[off] != 0x1C {
			return nil, fmt.Errorf("%w: bad dataset marker 0x%02x at offset %d", ErrCorrupt, data[off], off)
		}
		if off+5 > len(data) {
			return nil, fmt.Errorf("%w: truncated dataset header at offset %d", ErrCorrupt, off)
		}
		length := binary.BigEndian.Uint16(data[off+3 : off+5])
		if length&0x8000 != 0 {
			return nil, fmt.Errorf("%w: extended dataset length at offset %d", ErrCorrupt, off)
		}
		end := off + 5 + int(length)
		if end > len(data) {
			return nil, fmt.Errorf("%w: dataset overruns block at offset %d", ErrCorrupt, off)
		}
		out = append(out, dataset{
			record: data[off+1],
			number: data[off+2],
			data:   data[off+5 : end],
		})
		off = end
	}
	return out, nil
}

// marshalIIM encodes datasets back into a raw IIM block.
func marshalIIM(sets []dataset) []byte {
	var size int
	for _, ds := range sets {
		size += 5 + len(ds.data)
	}
	out := make([]byte, 0, size)
	for _, ds := range sets {
		out = append(out, 0x1C, ds.record, ds.number)
		out = binary.BigEndian.AppendUint16(out, uint16(len(ds.data)))
		out = append(out, ds.data...)
	}
	return out
}

// tagsFromIIM extracts the modeled caption/keyword datasets.
func tagsFromIIM(sets []dataset) Tags {
	var t Tags
	for _, ds := range sets {
		if ds.record != recordApplication {
			continue
		}
		switch ds.number {
		case dsCaption:
			if t.Caption == "" {
				t.Caption = string(ds.data)
			}
		case dsKeyword:
			t.Keywords = append(t.Keywords, string(ds.data))
		}
	}
	return t
}

// applyTags replaces the modeled datasets in sets with the values from t,
// preserving every other dataset. The result is sorted into canonical
// (record, dataset) order; relative order of repeated datasets is kept.
func applyTags(sets []dataset, t Tags) ([]dataset, error) {
	if len(t.Caption) > MaxCaptionLen {
		return nil, fmt.Errorf("%w: caption is %d bytes, limit %d", ErrTooLong, len(t.Caption), MaxCaptionLen)
	}
	out := make([]dataset, 0, len(sets)+len(t.Keywords)+2)
	haveCharset := false
	for _, ds := range sets {
		if ds.record == recordApplication && (ds.number == dsCaption || ds.number == dsKeyword) {
			continue
		}
		if ds.record == recordEnvelope && ds.number == dsCharacterSet {
			haveCharset = true
		}
		out = append(out, ds)
	}
	if !haveCharset {
		out = append(out, dataset{record: recordEnvelope, number: dsCharacterSet, data: utf8Escape})
	}
	for _, kw := range t.Keywords {
		if len(kw) > MaxKeywordLen {
			return nil, fmt.Errorf("%w: keyword %q is %d bytes, limit %d", ErrTooLong, kw, len(kw), MaxKeywordLen)
		}
		out = append(out, dataset{record: recordApplication, number: dsKeyword, data: []byte(kw)})
	}
	if t.Caption != "" {
		out = append(out, dataset{record: recordApplication, number: dsCaption, data: []byte(t.Caption)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].record != out[j].record {
			return out[i].record < out[j].record
		}
		return out[i].number < out[j].number
	})
	return out, nil
}
