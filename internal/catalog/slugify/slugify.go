// Package slugify normalizes human titles into URL-safe slugs and allocates
// collision-free variants with deterministic numeric suffixes.
package slugify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atelier-commerce/atelier/internal/shared"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the input, folds diacritics and replaces every run of
// non-alphanumeric characters with a single hyphen. An input that normalizes
// to nothing is a validation failure.
func Normalize(input string) (string, error) {
	folded, _, err := transform.String(deaccent, input)
	if err != nil {
		folded = input
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "", fmt.Errorf("slugify: %q yields an empty slug: %w", input, shared.ErrValidation)
	}
	return slug, nil
}

// Registry answers whether a slug is already taken. excludeID exempts the
// record being updated from colliding with itself; pass 0 for creates.
type Registry interface {
	SlugInUse(ctx context.Context, slug string, excludeID int64) (bool, error)
}

// Allocator probes slug candidates against a Registry.
type Allocator struct {
	registry Registry
}

// NewAllocator constructs an Allocator backed by the given registry.
func NewAllocator(registry Registry) *Allocator {
	return &Allocator{registry: registry}
}

// Allocate normalizes input and returns the first unused candidate from the
// sequence slug, slug-1, slug-2, ... The probing is strictly sequential so
// suffixes are predictable.
func (a *Allocator) Allocate(ctx context.Context, input string, excludeID int64) (string, error) {
	base, err := Normalize(input)
	if err != nil {
		return "", err
	}
	candidate := base
	for i := 1; ; i++ {
		inUse, err := a.registry.SlugInUse(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slugify: probe %q: %w", candidate, err)
		}
		if !inUse {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
