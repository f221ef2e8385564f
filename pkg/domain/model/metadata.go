package model

import "time"

// Length limits applied to extracted page metadata
const (
	MaxTitleLength       = 200
	TitleKeepLength      = 197
	MaxDescriptionLength = 300
	DescKeepLength       = 297

	MaxErrorMessageLength = 500
)

// PageMetadata is the result of extracting metadata from a page. A failed
// extraction is still a value: Fetched is false and Error holds the reason.
type PageMetadata struct {
	Title       string
	Description string
	Image       string
	Favicon     string
	SiteName    string
	Fetched     bool
	FetchedAt   time.Time
	Error       string
}
