package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	ErrStageNotConfigured = goerr.New("stage is not configured")
)

// Context keys for error values
const (
	OwnerIDKey    = "owner_id"
	BookmarkIDKey = "bookmark_id"
	StageKey      = "stage"
)
