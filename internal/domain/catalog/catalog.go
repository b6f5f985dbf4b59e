// Package catalog holds the known named entities (projects) text can be resolved to.
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Normalize prepares text for entity matching: newlines, tabs and carriage
// returns become spaces, letters are lowercased, punctuation is removed and
// surrounding whitespace is trimmed.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case isPunct(r):
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.TrimSpace(b.String())
}

// isPunct covers the ASCII punctuation set (including symbols such as $ + < = > ^ ` | ~)
// and Unicode punctuation such as „ “ ’ « ».
func isPunct(r rune) bool {
	if r < unicode.MaxASCII {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	return unicode.IsPunct(r)
}

// Entity is a catalog entry.
type Entity struct {
	id         string
	name       string
	normalized string
}

// NewEntity validates and creates an Entity. The id must be a UUID and is
// stored in canonical lowercase form; the name must not normalize to "".
func NewEntity(id, name string) (Entity, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Entity{}, fmt.Errorf("entity %q: invalid id %q: %w", name, id, err)
	}
	name = strings.TrimSpace(name)
	normalized := Normalize(name)
	if normalized == "" {
		return Entity{}, fmt.Errorf("entity %s: name %q is empty after normalization", u, name)
	}
	return Entity{id: u.String(), name: name, normalized: normalized}, nil
}

// ID returns the entity id.
func (e Entity) ID() string { return e.id }

// Name returns the display name.
func (e Entity) Name() string { return e.name }

// Normalized returns the normalized name used for matching.
func (e Entity) Normalized() string { return e.normalized }

// Method tells how an entity was identified.
type Method string

const (
	// MethodExact is a normalized substring match.
	MethodExact Method = "exact"
	// MethodEmbedding is a nearest-neighbour match on name embeddings.
	MethodEmbedding Method = "embedding"
)

// Identified is a successful resolution. Confidence is in [0, 1].
type Identified struct {
	Name       string
	ID         string
	Confidence float64
	Method     Method
}

// ValidateUnique rejects catalogs with duplicate ids.
func ValidateUnique(entities []Entity) error {
	seen := make(map[string]string, len(entities))
	for _, e := range entities {
		if prev, ok := seen[e.id]; ok {
			return fmt.Errorf("duplicate entity id %s (%q and %q)", e.id, prev, e.name)
		}
		seen[e.id] = e.name
	}
	return nil
}
