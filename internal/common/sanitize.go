package common

import "regexp"

var scriptTagRX = regexp.MustCompile(`(?is)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)

// SanitizeMarkdown strips script blocks from user supplied markdown.
func SanitizeMarkdown(markdown string) string {
	return scriptTagRX.ReplaceAllString(markdown, "")
}
