// Package ids derives stable 32-bit identifiers for named entities
// (categories, concepts, catalog entries) from their normalized names.
package ids

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fnvOffset32 and fnvPrime32 are the standard FNV-1a 32-bit constants.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Normalize applies NFC normalization, lowercasing, trimming, and interior
// whitespace collapsing so that equivalent names always hash identically.
func Normalize(name string) string {
	n := norm.NFC.String(name)
	n = strings.ToLower(n)
	n = strings.TrimSpace(n)

	var b strings.Builder
	b.Grow(len(n))
	lastWasSpace := false
	for _, r := range n {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Hash returns the FNV-1a 32-bit hash of the normalized name. Equal normalized
// names always produce the same id, across processes and rebuilds; this is
// the sole source of identity for categories, concepts, and catalog entries.
func Hash(name string) uint32 {
	n := Normalize(name)
	h := fnvOffset32
	for i := 0; i < len(n); i++ {
		h ^= uint32(n[i])
		h *= fnvPrime32
	}
	return h
}

// CollisionError is raised when two distinct normalized names hash to the
// same id. It is always fatal at ingestion time — there is no auto-mangling.
type CollisionError struct {
	Existing string
	New      string
	ID       uint32
}

func (e *CollisionError) Error() string {
	return "id collision: \"" + e.Existing + "\" and \"" + e.New + "\" both hash to " + uitoa(e.ID)
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Registry tracks the normalized name that produced each id so far, and
// reports a CollisionError the moment two distinct names would collide.
// It is not a cache of the full identifier space — see cache.IdentifierCache
// for that — it is only the collision detector used while names are first
// being assigned ids during ingestion.
type Registry struct {
	byID map[uint32]string
}

// NewRegistry returns an empty collision-detecting registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]string)}
}

// Assign hashes name, checks for a collision against everything previously
// assigned, and records the mapping. It returns the id and, if a different
// normalized name already produced that id, a *CollisionError.
func (r *Registry) Assign(name string) (uint32, error) {
	norm := Normalize(name)
	id := Hash(name)
	if existing, ok := r.byID[id]; ok {
		if existing != norm {
			return id, &CollisionError{Existing: existing, New: norm, ID: id}
		}
		return id, nil
	}
	r.byID[id] = norm
	return id, nil
}
