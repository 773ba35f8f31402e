package testutil

import (
	"testing"

	"github.com/nhle/deletion-planner/internal/store"
)

// NewTestStore returns an empty in-memory snapshot cache for tests that
// warm the task store or plan controller. The cache is closed when the
// test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
