package model

import (
	"time"

	"github.com/firebook-app/firebook/pkg/domain/types"
)

// BookmarkPatch accumulates the fields one stage owns. Nil fields are left
// untouched; repositories apply the whole patch as one update.
type BookmarkPatch struct {
	Title       *string
	Description *string
	Image       *string
	Favicon     *string
	SiteName    *string
	Fetched     *bool
	FetchedAt   *time.Time
	FetchError  *string

	Screenshot              *string
	ScreenshotCapturedAt    *time.Time
	ScreenshotError         *string
	ScreenshotErrorCategory *types.ScreenshotErrorCategory
	ScreenshotAttemptedAt   *time.Time

	AutoTagged         *bool
	AutoTaggedAt       *time.Time
	AutoTagMethod      *types.TagMethod
	SuggestedTags      []string
	AutoTagError       *string
	AutoTagAttemptedAt *time.Time

	HasEmbedding         *bool
	EmbeddingDimensions  *int
	EmbeddingGeneratedAt *time.Time
	EmbeddingError       *string
	EmbeddingAttemptedAt *time.Time
}

func ptr[T any](v T) *T {
	return &v
}

// NewMetadataPatch merges fetched page metadata into a patch. The page title
// only replaces an empty user title; the other fields are written when present.
func NewMetadataPatch(b *Bookmark, meta *PageMetadata) *BookmarkPatch {
	p := &BookmarkPatch{
		Fetched:   ptr(meta.Fetched),
		FetchedAt: ptr(meta.FetchedAt),
	}

	if meta.Title != "" && IsBlank(b.Title) {
		p.Title = ptr(meta.Title)
	}
	if meta.Description != "" {
		p.Description = ptr(meta.Description)
	}
	if meta.Image != "" {
		p.Image = ptr(meta.Image)
	}
	if meta.Favicon != "" {
		p.Favicon = ptr(meta.Favicon)
	}
	if meta.SiteName != "" {
		p.SiteName = ptr(meta.SiteName)
	}
	if meta.Error != "" {
		p.FetchError = ptr(meta.Error)
	}

	return p
}

// NewMetadataFailurePatch marks the fetch as attempted but failed
func NewMetadataFailurePatch(msg string, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		Fetched:    ptr(false),
		FetchedAt:  ptr(now),
		FetchError: ptr(msg),
	}
}

// NewScreenshotPatch records a successful capture
func NewScreenshotPatch(publicURL string, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		Screenshot:           ptr(publicURL),
		ScreenshotCapturedAt: ptr(now),
	}
}

// NewScreenshotFailurePatch records a failed capture with its category
func NewScreenshotFailurePatch(msg string, category types.ScreenshotErrorCategory, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		ScreenshotError:         ptr(Truncate(msg, MaxErrorMessageLength, MaxErrorMessageLength-3)),
		ScreenshotErrorCategory: ptr(category),
		ScreenshotAttemptedAt:   ptr(now),
	}
}

// NewTagPatch records suggested tags and marks the stage done
func NewTagPatch(tags []string, method types.TagMethod, now time.Time) *BookmarkPatch {
	if tags == nil {
		tags = []string{}
	}
	return &BookmarkPatch{
		AutoTagged:    ptr(true),
		AutoTaggedAt:  ptr(now),
		AutoTagMethod: ptr(method),
		SuggestedTags: tags,
	}
}

// NewTagFailurePatch records a retryable tagging failure; AutoTagged stays unset
func NewTagFailurePatch(msg string, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		AutoTagError:       ptr(msg),
		AutoTagAttemptedAt: ptr(now),
	}
}

// NewEmbeddingPatch records a stored embedding. The vector itself stays in the
// vector store.
func NewEmbeddingPatch(dimensions int, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		HasEmbedding:         ptr(true),
		EmbeddingDimensions:  ptr(dimensions),
		EmbeddingGeneratedAt: ptr(now),
	}
}

// NewEmbeddingFailurePatch records an embedding failure; HasEmbedding stays unset
func NewEmbeddingFailurePatch(msg string, now time.Time) *BookmarkPatch {
	return &BookmarkPatch{
		EmbeddingError:       ptr(msg),
		EmbeddingAttemptedAt: ptr(now),
	}
}

// IsEmpty reports whether the patch changes nothing
func (p *BookmarkPatch) IsEmpty() bool {
	return p == nil || (p.Title == nil && p.Description == nil && p.Image == nil &&
		p.Favicon == nil && p.SiteName == nil && p.Fetched == nil && p.FetchedAt == nil &&
		p.FetchError == nil && p.Screenshot == nil && p.ScreenshotCapturedAt == nil &&
		p.ScreenshotError == nil && p.ScreenshotErrorCategory == nil && p.ScreenshotAttemptedAt == nil &&
		p.AutoTagged == nil && p.AutoTaggedAt == nil && p.AutoTagMethod == nil &&
		p.SuggestedTags == nil && p.AutoTagError == nil && p.AutoTagAttemptedAt == nil &&
		p.HasEmbedding == nil && p.EmbeddingDimensions == nil && p.EmbeddingGeneratedAt == nil &&
		p.EmbeddingError == nil && p.EmbeddingAttemptedAt == nil)
}

// HasVisibleChange reports whether the patch touches fields shown in the UI
func (p *BookmarkPatch) HasVisibleChange() bool {
	return p != nil && (p.Title != nil || p.Description != nil || p.Image != nil ||
		p.Favicon != nil || p.SiteName != nil || p.Screenshot != nil || p.SuggestedTags != nil)
}

// Apply writes the patch into b
func (p *BookmarkPatch) Apply(b *Bookmark) {
	if p == nil {
		return
	}
	set(&b.Title, p.Title)
	set(&b.Description, p.Description)
	set(&b.Image, p.Image)
	set(&b.Favicon, p.Favicon)
	set(&b.SiteName, p.SiteName)
	set(&b.Fetched, p.Fetched)
	set(&b.FetchedAt, p.FetchedAt)
	set(&b.FetchError, p.FetchError)

	set(&b.Screenshot, p.Screenshot)
	set(&b.ScreenshotCapturedAt, p.ScreenshotCapturedAt)
	set(&b.ScreenshotError, p.ScreenshotError)
	set(&b.ScreenshotErrorCategory, p.ScreenshotErrorCategory)
	set(&b.ScreenshotAttemptedAt, p.ScreenshotAttemptedAt)

	set(&b.AutoTagged, p.AutoTagged)
	set(&b.AutoTaggedAt, p.AutoTaggedAt)
	set(&b.AutoTagMethod, p.AutoTagMethod)
	if p.SuggestedTags != nil {
		b.SuggestedTags = append([]string{}, p.SuggestedTags...)
	}
	set(&b.AutoTagError, p.AutoTagError)
	set(&b.AutoTagAttemptedAt, p.AutoTagAttemptedAt)

	set(&b.HasEmbedding, p.HasEmbedding)
	set(&b.EmbeddingDimensions, p.EmbeddingDimensions)
	set(&b.EmbeddingGeneratedAt, p.EmbeddingGeneratedAt)
	set(&b.EmbeddingError, p.EmbeddingError)
	set(&b.EmbeddingAttemptedAt, p.EmbeddingAttemptedAt)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// NewEmbeddingResetPatch clears a stale embedding flag whose vector row is gone
func NewEmbeddingResetPatch() *BookmarkPatch {
	return &BookmarkPatch{
		HasEmbedding:        ptr(false),
		EmbeddingDimensions: ptr(0),
	}
}
