package postservice

import (
	"math"
	"regexp"
	"strings"
	"time"
)

var nonSlugRX = regexp.MustCompile(`[^a-z0-9]+`)

// wordsPerMinute is the reading speed used for the reading time estimate.
const wordsPerMinute = 200

// Slugify lowercases s and collapses every run of characters outside [a-z0-9] into a single hyphen.
func Slugify(s string) string {
	slug := nonSlugRX.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// ReadingTime estimates minutes to read content. It is never less than one.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// resolvePublishedAt sets the publication time once, on the first transition to published.
func resolvePublishedAt(current *time.Time, status Status, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	if status == StatusPublished {
		return &now
	}
	return nil
}
