package testsupport

import (
	"context"
	"testing"

	"reelplan/internal/jobs"
	"reelplan/internal/storage"
)

// MustOpenJobs creates the jobs table on the store's database.
func MustOpenJobs(t testing.TB, store *storage.Store) *jobs.SQLiteRepository {
	t.Helper()

	repo, err := jobs.NewSQLiteRepository(context.Background(), store.DB())
	if err != nil {
		t.Fatalf("jobs.NewSQLiteRepository: %v", err)
	}
	return repo
}
