package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

func TestFileStoreInitializeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata", "documents_metadata.json")
	store := NewFileStore(path)

	require.NoError(t, store.Initialize())

	reg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, model.RegistryVersion, reg.Version)
	assert.Zero(t, reg.TotalDocuments)
	assert.Empty(t, reg.Documents)

	// A second initialize must not clobber existing content.
	reg.Documents = append(reg.Documents, model.DocumentRecord{ID: "doc_1", SourceURL: "https://x/a.pdf"})
	require.NoError(t, store.Save(reg))
	require.NoError(t, store.Initialize())

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalDocuments)
}

func TestFileStoreAutoInitializesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents_metadata.json")

	reg, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, reg.Documents)

	_, err = os.Stat(path)
	assert.NoError(t, err, "load creates absent storage")
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestSaveRecomputesDerivedFields(t *testing.T) {
	stores := map[string]Store{
		"file": NewFileStore(filepath.Join(t.TempDir(), "documents_metadata.json")),
		"mem":  NewMemStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			reg, err := store.Load()
			require.NoError(t, err)

			reg.Documents = append(reg.Documents,
				model.DocumentRecord{ID: "1", SourceURL: "https://x/1.pdf", SourceWebsite: "pakistan-code"},
				model.DocumentRecord{ID: "2", SourceURL: "https://x/2.pdf", SourceWebsite: "sindh-code"},
				model.DocumentRecord{ID: "3", SourceURL: "https://x/3.pdf", SourceWebsite: "pakistan-code"},
			)
			// Derived fields deliberately stale: Save must fix them.
			reg.TotalDocuments = 99
			reg.Sources = map[string]int{"bogus": 42}

			require.NoError(t, store.Save(reg))

			loaded, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, 3, loaded.TotalDocuments)
			assert.Equal(t, map[string]int{"pakistan-code": 2, "sindh-code": 1}, loaded.Sources)
			assert.NotEmpty(t, loaded.LastUpdated)

			// Idempotent: saving again with no mutation yields the same counts.
			require.NoError(t, store.Save(loaded))
			again, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, loaded.TotalDocuments, again.TotalDocuments)
			assert.Equal(t, loaded.Sources, again.Sources)
		})
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "registry.db")
	store, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Initialize())
	require.NoError(t, store.Initialize(), "initialize is idempotent")

	reg, err := store.Load()
	require.NoError(t, err)
	reg.Documents = append(reg.Documents, model.DocumentRecord{
		ID:            "doc_1",
		SourceURL:     "https://x/a.pdf",
		SourceWebsite: "supremecourt",
	})
	require.NoError(t, store.Save(reg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalDocuments)
	assert.Equal(t, map[string]int{"supremecourt": 1}, loaded.Sources)
	require.Len(t, loaded.Documents, 1)
	assert.Equal(t, "doc_1", loaded.Documents[0].ID)
}

func TestManagerOverEveryStore(t *testing.T) {
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer sqliteStore.Close()

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "documents_metadata.json")),
		"mem":    NewMemStore(),
		"sqlite": sqliteStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			m := NewManager(store)
			id, err := m.Add(model.DocumentRecord{SourceURL: "https://x/a.pdf", Title: "Act A"})
			require.NoError(t, err)

			exists, err := m.DocumentExists("https://x/a.pdf")
			require.NoError(t, err)
			assert.True(t, exists)

			ok, err := m.Update(id, Patch{Status: Ptr("verified")})
			require.NoError(t, err)
			assert.True(t, ok)

			rec, err := m.GetByID(id)
			require.NoError(t, err)
			assert.Equal(t, "verified", rec.Status)
		})
	}
}
