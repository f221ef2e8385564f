package model

import (
	"net/url"

	"github.com/firebook-app/firebook/pkg/domain/types"
)

// MinEmbeddingTextLength is the minimum normalized text length worth embedding
const MinEmbeddingTextLength = 10

// Guard decides whether a stage should run for a bookmark snapshot. The reason
// is empty for DecisionProceed.
type Guard func(b *Bookmark) (types.Decision, string)

// GuardMetadata skips already fetched bookmarks
func GuardMetadata(b *Bookmark) (types.Decision, string) {
	if b.URL == "" {
		return types.DecisionFail, "url is required"
	}
	if b.Fetched {
		return types.DecisionSkip, "metadata already fetched"
	}
	return types.DecisionProceed, ""
}

// GuardTags skips already tagged bookmarks and fails when nothing can be tagged
func GuardTags(b *Bookmark) (types.Decision, string) {
	if b.AutoTagged {
		return types.DecisionSkip, "already auto-tagged"
	}
	if b.URL == "" && IsBlank(b.Title) && IsBlank(b.Description) {
		return types.DecisionFail, "no url, title or description to tag"
	}
	return types.DecisionProceed, ""
}

// GuardEmbedding skips embedded bookmarks and ones with too little text
func GuardEmbedding(b *Bookmark) (types.Decision, string) {
	if b.HasEmbedding {
		return types.DecisionSkip, "embedding already generated"
	}
	if len(BuildEmbeddingText(b.Title, b.Description, b.AllTags())) < MinEmbeddingTextLength {
		return types.DecisionSkip, "not enough text to embed"
	}
	return types.DecisionProceed, ""
}

// GuardScreenshot skips captured bookmarks and fails fast on unusable URLs
func GuardScreenshot(b *Bookmark) (types.Decision, string) {
	if b.Screenshot != "" {
		return types.DecisionSkip, "screenshot already captured"
	}
	if !IsHTTPURL(b.URL) {
		return types.DecisionFail, "url must be an absolute http(s) URL"
	}
	return types.DecisionProceed, ""
}

// IsHTTPURL reports whether raw is an absolute http or https URL with a host
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
