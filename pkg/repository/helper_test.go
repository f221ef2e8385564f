package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/repository/firestore"
	"github.com/firebook-app/firebook/pkg/repository/memory"
	"github.com/firebook-app/firebook/pkg/repository/postgres"
)

func newOwnerID() model.OwnerID {
	return model.OwnerID(fmt.Sprintf("owner-%d", time.Now().UnixNano()))
}

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		databaseID = "(default)"
	}

	ctx := context.Background()
	// Test data isolation is achieved through random owner IDs
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix("test_"))
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func newPostgresEmbeddingRepository(t *testing.T) interfaces.EmbeddingRepository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	if err := postgres.Migrate(ctx, dsn, 3); err != nil {
		t.Fatalf("failed to migrate postgres: %v", err)
	}

	store, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create postgres store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close postgres store: %v", err)
		}
	})
	return store
}
