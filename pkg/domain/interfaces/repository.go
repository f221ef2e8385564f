package interfaces

// Repository bundles the document store and the vector store
type Repository interface {
	Bookmark() BookmarkRepository
	Embedding() EmbeddingRepository
}
