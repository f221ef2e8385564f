package model

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// BuildEmbeddingText joins title, description and tags with single spaces,
// dropping empty parts.
func BuildEmbeddingText(title, description string, tags []string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{title, description, strings.Join(tags, " ")} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// BuildTagText is the text sent to the NLP service for a bookmark
func BuildTagText(title, description string) string {
	return BuildEmbeddingText(title, description, nil)
}

// WordCount counts whitespace separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// IsBlank reports whether s is empty after trimming whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Truncate shortens s to keep runes plus "..." when it exceeds max runes
func Truncate(s string, max, keep int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:keep]) + "..."
}

// DomainTag derives a tag from the first hostname label without "www.",
// e.g. "https://www.github.com/x" gives "Github". Unparseable URLs give "".
func DomainTag(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(r)) + label[size:]
}

// LeafCategory returns the last segment of a category path such as
// "/Computers & Electronics/Software".
func LeafCategory(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeTags accepts a list or a comma-separated string and returns
// trimmed non-empty tags. Other values give nil.
func NormalizeTags(v any) []string {
	var raw []string
	switch tags := v.(type) {
	case []string:
		raw = tags
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(tags, ",")
	default:
		return nil
	}

	result := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// DedupTags removes case-insensitive duplicates keeping the first spelling
func DedupTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, t)
	}
	return result
}
