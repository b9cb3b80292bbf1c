package fetch

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// urlPattern matches http/https URLs embedded in free-form post text.
var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// ReadLinksFile reads a links manifest as UTF-8, replacing invalid byte
// sequences instead of failing on malformed text.
func ReadLinksFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read links file %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// ExtractLinks returns every URL found in text, in order of appearance,
// with duplicates removed.
func ExtractLinks(text string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
