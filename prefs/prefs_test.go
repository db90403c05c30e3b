package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/prefs"
)

func TestStore_RoundTripAcrossInstances(t *testing.T) {
	folder := t.TempDir()

	store, err := prefs.NewStore(folder, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "light", store.Current().Theme)

	require.NoError(t, store.Update(func(doc *prefs.Document) {
		doc.Theme = "dark"
		doc.SidebarCollapsed = true
		doc.LastCredential = "ada"
	}))

	reopened, err := prefs.NewStore(folder, zerolog.Nop())
	require.NoError(t, err)
	got := reopened.Current()
	require.Equal(t, "dark", got.Theme)
	require.True(t, got.SidebarCollapsed)
	require.Equal(t, "ada", got.LastCredential)
	require.Equal(t, 20, got.PageSize)
}

func TestStore_CorruptDocumentFallsBackToDefaults(t *testing.T) {
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "prefs.json"), []byte("not json"), 0o600))

	store, err := prefs.NewStore(folder, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, prefs.Document{Theme: "light", PageSize: 20}, store.Current())
}

func TestStore_MissingDocumentUsesDefaults(t *testing.T) {
	store, err := prefs.NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 20, store.Current().PageSize)
}
