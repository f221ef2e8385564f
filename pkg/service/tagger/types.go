package tagger

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/types"
)

// Service suggests tags for a bookmark
type Service interface {
	// Suggest returns up to MaxTags tags, domain tag first. An error means the
	// stage should stay retryable; text too short for the classifier is not an
	// error.
	Suggest(ctx context.Context, title, description, rawURL string) (*Result, error)
}

// Result is a successful suggestion
type Result struct {
	Tags   []string
	Method types.TagMethod
}

// Analyzer is the remote NLP capability
type Analyzer interface {
	// Classify returns taxonomy categories. Input the service rejects as too
	// short yields an error wrapping model.ErrTextTooShort.
	Classify(ctx context.Context, text string) ([]Category, error)
	// Entities returns named entities found in text
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// Category is a classifier hit such as "/Computers & Electronics/Software"
type Category struct {
	Name       string
	Confidence float64
}

// Entity is an extracted entity with its type name, e.g. "ORGANIZATION"
type Entity struct {
	Name     string
	Type     string
	Salience float64
}
