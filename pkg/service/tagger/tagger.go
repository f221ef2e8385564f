package tagger

import (
	"context"
	"errors"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMinWords        = 20
	DefaultMinConfidence   = 0.5
	DefaultMinSalience     = 0.1
	DefaultMaxCategoryTags = 5
	DefaultMaxEntityTags   = 5
	DefaultMaxTags         = 8
)

// DefaultEntityTypes are the entity types worth turning into tags
func DefaultEntityTypes() []string {
	return []string{"PERSON", "ORGANIZATION", "EVENT", "WORK_OF_ART", "CONSUMER_GOOD"}
}

type client struct {
	analyzer      Analyzer
	minWords      int
	minConfidence float64
	minSalience   float64
	maxCategories int
	maxEntities   int
	maxTags       int
	entityTypes   map[string]struct{}
}

// Option is a functional option for client configuration
type Option func(*client)

func WithMinWords(n int) Option {
	return func(c *client) {
		c.minWords = n
	}
}

func WithMaxTags(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.maxTags = n
		}
	}
}

func WithThresholds(minConfidence, minSalience float64) Option {
	return func(c *client) {
		c.minConfidence = minConfidence
		c.minSalience = minSalience
	}
}

// New creates a tag suggester. analyzer may be nil, in which case every
// bookmark gets the domain tag only.
func New(analyzer Analyzer, opts ...Option) Service {
	c := &client{
		analyzer:      analyzer,
		minWords:      DefaultMinWords,
		minConfidence: DefaultMinConfidence,
		minSalience:   DefaultMinSalience,
		maxCategories: DefaultMaxCategoryTags,
		maxEntities:   DefaultMaxEntityTags,
		maxTags:       DefaultMaxTags,
		entityTypes:   make(map[string]struct{}),
	}
	for _, t := range DefaultEntityTypes() {
		c.entityTypes[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Suggest(ctx context.Context, title, description, rawURL string) (*Result, error) {
	domain := model.DomainTag(rawURL)
	text := model.BuildTagText(title, description)

	if c.analyzer == nil || model.WordCount(text) < c.minWords {
		return domainOnly(domain, types.TagMethodDomainOnly), nil
	}

	var categories []Category
	var entities []Entity
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		categories, err = c.analyzer.Classify(egCtx, text)
		return err
	})
	eg.Go(func() error {
		var err error
		entities, err = c.analyzer.Entities(egCtx, text)
		return err
	})

	if err := eg.Wait(); err != nil {
		if errors.Is(err, model.ErrTextTooShort) {
			logging.From(ctx).Info("classifier rejected text as too short, using domain tag", "url", rawURL)
			return domainOnly(domain, types.TagMethodDomainFallback), nil
		}
		return nil, goerr.Wrap(err, "failed to analyze text", goerr.V("url", rawURL))
	}

	tags := make([]string, 0, c.maxTags)
	if domain != "" {
		tags = append(tags, domain)
	}
	tags = append(tags, c.categoryTags(categories)...)
	tags = append(tags, c.entityTags(entities)...)

	tags = model.DedupTags(tags)
	if len(tags) > c.maxTags {
		tags = tags[:c.maxTags]
	}

	return &Result{Tags: tags, Method: types.TagMethodNLP}, nil
}

func (c *client) categoryTags(categories []Category) []string {
	var tags []string
	for _, cat := range categories {
		if len(tags) >= c.maxCategories {
			break
		}
		if cat.Confidence <= c.minConfidence {
			continue
		}
		if leaf := model.LeafCategory(cat.Name); leaf != "" {
			tags = append(tags, leaf)
		}
	}
	return tags
}

func (c *client) entityTags(entities []Entity) []string {
	var tags []string
	for _, e := range entities {
		if len(tags) >= c.maxEntities {
			break
		}
		if e.Salience <= c.minSalience {
			continue
		}
		if _, ok := c.entityTypes[e.Type]; !ok {
			continue
		}
		if e.Name != "" {
			tags = append(tags, e.Name)
		}
	}
	return tags
}

func domainOnly(domain string, method types.TagMethod) *Result {
	tags := []string{}
	if domain != "" {
		tags = append(tags, domain)
	}
	return &Result{Tags: tags, Method: method}
}
