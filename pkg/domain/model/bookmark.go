package model

import (
	"time"

	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/google/uuid"
)

// OwnerID is the user ID that owns a bookmark (the document path segment)
type OwnerID string

// BookmarkID is the document ID of a bookmark under its owner
type BookmarkID string

// Bookmark is a user's saved link plus the enrichment fields written by the
// pipeline. Each enrichment group is written by exactly one stage.
type Bookmark struct {
	ID          BookmarkID
	OwnerID     OwnerID
	URL         string
	Title       string
	Description string
	Tags        []string
	Rating      int
	CreatedAt   time.Time

	// Metadata stage
	Image      string
	Favicon    string
	SiteName   string
	Fetched    bool
	FetchedAt  time.Time
	FetchError string

	// Screenshot stage
	Screenshot              string
	ScreenshotCapturedAt    time.Time
	ScreenshotError         string
	ScreenshotErrorCategory types.ScreenshotErrorCategory
	ScreenshotAttemptedAt   time.Time

	// Tag stage
	AutoTagged         bool
	AutoTaggedAt       time.Time
	AutoTagMethod      types.TagMethod
	SuggestedTags      []string
	AutoTagError       string
	AutoTagAttemptedAt time.Time

	// Embedding stage
	HasEmbedding         bool
	EmbeddingDimensions  int
	EmbeddingGeneratedAt time.Time
	EmbeddingError       string
	EmbeddingAttemptedAt time.Time
}

// Copy returns a deep copy of the bookmark
func (b *Bookmark) Copy() *Bookmark {
	copied := *b
	if b.Tags != nil {
		copied.Tags = append([]string(nil), b.Tags...)
	}
	if b.SuggestedTags != nil {
		copied.SuggestedTags = append([]string(nil), b.SuggestedTags...)
	}
	return &copied
}

// AllTags returns user tags followed by suggested tags, deduplicated in order
func (b *Bookmark) AllTags() []string {
	return DedupTags(append(append([]string(nil), b.Tags...), b.SuggestedTags...))
}

// NewBookmarkID generates a random BookmarkID for stores without their own
// ID allocation
func NewBookmarkID() BookmarkID {
	return BookmarkID(uuid.New().String())
}
