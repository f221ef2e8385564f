package usecase

import (
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/service/cdn"
	"github.com/firebook-app/firebook/pkg/service/describer"
	"github.com/firebook-app/firebook/pkg/service/embedding"
	"github.com/firebook-app/firebook/pkg/service/metadata"
	"github.com/firebook-app/firebook/pkg/service/screenshot"
	"github.com/firebook-app/firebook/pkg/service/tagger"
)

// UseCases runs the enrichment stages and the callable operations. Every
// external capability is injected; the ones left unset disable the stage
// that needs them.
type UseCases struct {
	repo       interfaces.Repository
	embeddings interfaces.EmbeddingRepository

	metadata   metadata.Service
	screenshot screenshot.Service
	tagger     tagger.Service
	embedder   embedding.Service
	describer  describer.Service

	cache   interfaces.Cache
	storage interfaces.BlobStorage
	cdn     interfaces.CDN

	now func() time.Time
}

type Option func(*UseCases)

// WithEmbeddingRepository replaces repo.Embedding() as the vector store
func WithEmbeddingRepository(r interfaces.EmbeddingRepository) Option {
	return func(uc *UseCases) {
		uc.embeddings = r
	}
}

func WithMetadata(svc metadata.Service) Option {
	return func(uc *UseCases) {
		uc.metadata = svc
	}
}

func WithScreenshot(svc screenshot.Service) Option {
	return func(uc *UseCases) {
		uc.screenshot = svc
	}
}

func WithTagger(svc tagger.Service) Option {
	return func(uc *UseCases) {
		uc.tagger = svc
	}
}

func WithEmbedder(svc embedding.Service) Option {
	return func(uc *UseCases) {
		uc.embedder = svc
	}
}

func WithDescriber(svc describer.Service) Option {
	return func(uc *UseCases) {
		uc.describer = svc
	}
}

func WithCache(c interfaces.Cache) Option {
	return func(uc *UseCases) {
		uc.cache = c
	}
}

func WithBlobStorage(s interfaces.BlobStorage) Option {
	return func(uc *UseCases) {
		uc.storage = s
	}
}

func WithCDN(c interfaces.CDN) Option {
	return func(uc *UseCases) {
		uc.cdn = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.embeddings == nil {
		uc.embeddings = repo.Embedding()
	}
	if uc.metadata == nil {
		uc.metadata = metadata.New()
	}
	if uc.tagger == nil {
		uc.tagger = tagger.New(nil)
	}
	if uc.cache == nil {
		uc.cache = cache.NewNoop()
	}
	if uc.cdn == nil {
		uc.cdn = cdn.NewNoop()
	}

	return uc
}

func (uc *UseCases) timestamp() time.Time {
	return uc.now().UTC()
}
