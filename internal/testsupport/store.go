package testsupport

import (
	"context"
	"testing"

	"crownworks/internal/config"
	"crownworks/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// EnqueueImport enqueues an import_url job for tests.
func EnqueueImport(t testing.TB, st *store.Store, url string) int64 {
	t.Helper()

	id, err := st.EnqueueImport(context.Background(), store.ImportPayload{URL: url})
	if err != nil {
		t.Fatalf("store.EnqueueImport: %v", err)
	}
	return id
}
