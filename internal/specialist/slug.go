package specialist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

const (
	maxSlugAttempts = 100
	fallbackSlug    = "specialist"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeSlug lower-cases s, collapses non-alphanumeric runs into a single
// hyphen and trims hyphens from both ends.
func NormalizeSlug(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// SlugBase is the candidate slug for a title. Titles that normalize to nothing
// (all punctuation, non-latin scripts) are transliterated first, then fall back
// to a constant.
func SlugBase(title string) string {
	if base := NormalizeSlug(title); base != "" {
		return base
	}
	if base := NormalizeSlug(slug.Make(title)); base != "" {
		return base
	}
	return fallbackSlug
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// uniqueSlug tries base, base-1, base-2 ... and finally base-<epoch millis>.
func (s *Service) uniqueSlug(ctx context.Context, store slugChecker, base, excludeID string) (string, error) {
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := store.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		s.onCollision()
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%d", base, s.now().UnixMilli()), nil
}
