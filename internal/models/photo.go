// Package models defines the domain types for Sowilo.
package models

import (
	"slices"
	"strings"
	"time"
)

// Tags is the canonical in-memory form of a photo's embedded IPTC metadata.
type Tags struct {
	Caption  string   `json:"caption"`
	Keywords []string `json:"keywords"`
}

// Normalize returns a copy with trimmed caption and keywords deduplicated
// case-insensitively, insertion order preserved. Applied once at write time;
// values read back from disk are kept as-is.
func (t Tags) Normalize() Tags {
	out := Tags{Caption: strings.TrimSpace(t.Caption)}
	seen := make(map[string]struct{}, len(t.Keywords))
	for _, kw := range t.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		folded := strings.ToLower(kw)
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		out.Keywords = append(out.Keywords, kw)
	}
	return out
}

// HasKeyword reports whether kw is a member of the keyword set,
// compared case-insensitively.
func (t Tags) HasKeyword(kw string) bool {
	return slices.ContainsFunc(t.Keywords, func(k string) bool {
		return strings.EqualFold(k, kw)
	})
}

// Equal compares caption and keywords, keywords case-insensitively.
func (t Tags) Equal(other Tags) bool {
	if t.Caption != other.Caption || len(t.Keywords) != len(other.Keywords) {
		return false
	}
	for i, kw := range t.Keywords {
		if !strings.EqualFold(kw, other.Keywords[i]) {
			return false
		}
	}
	return true
}

// Fingerprint is the (size, mtime) pair used to detect out-of-band file
// changes without re-parsing content.
type Fingerprint struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Matches reports whether two fingerprints refer to the same file state.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// Photo is an indexed image file. Path is the stable identifier, relative
// to the library root.
type Photo struct {
	Path        string      `json:"path"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Tags        Tags        `json:"tags"`
	// Degraded marks entries whose metadata could not be read. The photo
	// stays listed with empty Tags.
	Degraded bool `json:"degraded,omitempty"`
}

// FileInfo is the lightweight result of a library enumeration.
type FileInfo struct {
	Path        string
	Fingerprint Fingerprint
}
