package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
)

const upsertSQL = `
INSERT INTO bookmarks (firebase_uid, firebase_bookmark_id, title, url, description, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (firebase_uid, firebase_bookmark_id) DO UPDATE SET
	title = EXCLUDED.title,
	url = EXCLUDED.url,
	description = EXCLUDED.description,
	embedding = EXCLUDED.embedding,
	updated_at = EXCLUDED.updated_at`

const getSQL = `
SELECT title, url, description, embedding, updated_at
FROM bookmarks
WHERE firebase_uid = $1 AND firebase_bookmark_id = $2`

// Similarity is 1 - cosine distance; ordering by distance keeps the index usable.
const findSimilarSQL = `
SELECT firebase_bookmark_id, title, url, 1 - (embedding <=> $2) AS similarity
FROM bookmarks
WHERE firebase_uid = $1
	AND firebase_bookmark_id <> $3
	AND 1 - (embedding <=> $2) >= $4
ORDER BY embedding <=> $2, firebase_bookmark_id
LIMIT $5`

const listByOwnerSQL = `
SELECT firebase_bookmark_id, title, url, description, embedding, updated_at
FROM bookmarks
WHERE firebase_uid = $1
ORDER BY firebase_bookmark_id`

const deleteSQL = `DELETE FROM bookmarks WHERE firebase_uid = $1 AND firebase_bookmark_id = $2`

func (s *Store) Upsert(ctx context.Context, record *model.EmbeddingRecord) error {
	if len(record.Embedding) == 0 {
		return goerr.Wrap(model.ErrEmptyEmbedding, "refusing to store empty embedding",
			goerr.V("bookmark_id", record.BookmarkID))
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, upsertSQL,
		string(record.OwnerID),
		string(record.BookmarkID),
		record.Title,
		record.URL,
		record.Description,
		pgvector.NewVector(record.Embedding),
		updatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert embedding",
			goerr.V("owner_id", record.OwnerID), goerr.V("bookmark_id", record.BookmarkID))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) (*model.EmbeddingRecord, error) {
	rec := &model.EmbeddingRecord{OwnerID: ownerID, BookmarkID: bookmarkID}
	var vec pgvector.Vector

	err := s.pool.QueryRow(ctx, getSQL, string(ownerID), string(bookmarkID)).
		Scan(&rec.Title, &rec.URL, &rec.Description, &vec, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "embedding not found",
				goerr.V("owner_id", ownerID), goerr.V("bookmark_id", bookmarkID))
		}
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V("bookmark_id", bookmarkID))
	}

	rec.Embedding = vec.Slice()
	return rec, nil
}

func (s *Store) FindSimilar(ctx context.Context, ownerID model.OwnerID, embedding []float32, exclude model.BookmarkID, threshold float64, limit int) ([]*model.Neighbor, error) {
	rows, err := s.pool.Query(ctx, findSimilarSQL,
		string(ownerID), pgvector.NewVector(embedding), string(exclude), threshold, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query similar embeddings", goerr.V("owner_id", ownerID))
	}
	defer rows.Close()

	neighbors := make([]*model.Neighbor, 0, limit)
	for rows.Next() {
		var n model.Neighbor
		var id string
		if err := rows.Scan(&id, &n.Title, &n.URL, &n.Similarity); err != nil {
			return nil, goerr.Wrap(err, "failed to scan similar embedding")
		}
		n.BookmarkID = model.BookmarkID(id)
		neighbors = append(neighbors, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate similar embeddings")
	}

	return neighbors, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.EmbeddingRecord, error) {
	rows, err := s.pool.Query(ctx, listByOwnerSQL, string(ownerID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list embeddings", goerr.V("owner_id", ownerID))
	}
	defer rows.Close()

	records := make([]*model.EmbeddingRecord, 0)
	for rows.Next() {
		rec := &model.EmbeddingRecord{OwnerID: ownerID}
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &rec.Title, &rec.URL, &rec.Description, &vec, &rec.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan embedding")
		}
		rec.BookmarkID = model.BookmarkID(id)
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate embeddings")
	}

	return records, nil
}

func (s *Store) Delete(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) error {
	if _, err := s.pool.Exec(ctx, deleteSQL, string(ownerID), string(bookmarkID)); err != nil {
		return goerr.Wrap(err, "failed to delete embedding",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", bookmarkID))
	}
	return nil
}
