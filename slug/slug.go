// Package slug derives unique, URL safe identifiers from display text.
// Users and articles share the same generator with a different source
// field.
package slug

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/gosimple/slug"
)

// DefaultMaxAttempts bounds collision retries. Exhausting it means the
// randomness space is misconfigured, not an expected runtime condition.
const DefaultMaxAttempts = 10

// suffixBytes random bytes per retry, hex encoded to 2*suffixBytes chars.
const suffixBytes = 2

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator produces unique slugs, retrying with a short random suffix on
// collision.
type Generator struct {
	MaxAttempts int
}

func NewGenerator() *Generator {
	return &Generator{MaxAttempts: DefaultMaxAttempts}
}

// Make returns the URL safe, lowercase, hyphenated form of the source
// text without any uniqueness guarantee.
func Make(source string) string {
	return slug.Make(source)
}

// Generate derives a slug from source and keeps appending random suffixes
// until exists reports the candidate free.
func (g *Generator) Generate(ctx context.Context, source string, exists ExistsFunc) (string, error) {
	base := slug.Make(source)
	if base == "" {
		base = randomSuffix()
	}

	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	candidate := base
	for attempt := 0; attempt < maxAttempts; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%s", base, randomSuffix())
	}

	return "", fmt.Errorf("slug: could not find a unique value for %q after %d attempts", source, maxAttempts)
}

func randomSuffix() string {
	buf := make([]byte, suffixBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken, which is not recoverable here.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
