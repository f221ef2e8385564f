package memory

import (
	"github.com/firebook-app/firebook/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	bookmark  *bookmarkRepository
	embedding *embeddingRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		bookmark:  newBookmarkRepository(),
		embedding: newEmbeddingRepository(),
	}
}

func (m *Memory) Bookmark() interfaces.BookmarkRepository {
	return m.bookmark
}

func (m *Memory) Embedding() interfaces.EmbeddingRepository {
	return m.embedding
}

// NewEmbeddingRepository returns a standalone in-memory vector store
func NewEmbeddingRepository() interfaces.EmbeddingRepository {
	return newEmbeddingRepository()
}
