package token_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/token"
)

func newFileStore(t *testing.T, dir string) *token.FileStore {
	t.Helper()
	fs, err := token.NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	return fs
}

func TestFileStore_RoundTripAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	pair := token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: &exp}

	fs := newFileStore(t, dir)
	require.NoError(t, fs.Set(pair))

	reloaded := newFileStore(t, dir)
	got := reloaded.Get()
	require.Equal(t, pair.AccessToken, got.AccessToken)
	require.Equal(t, pair.RefreshToken, got.RefreshToken)
	require.NotNil(t, got.ExpiresAt)
	require.True(t, got.ExpiresAt.Equal(exp))
}

func TestFileStore_DocumentIsNotPlaintext(t *testing.T) {
	dir := t.TempDir()
	fs := newFileStore(t, dir)
	require.NoError(t, fs.Set(token.Pair{AccessToken: "super-secret-access", RefreshToken: "refresh-1"}))

	raw, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-access")
}

func TestFileStore_CorruptDocumentFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	fs := newFileStore(t, dir)
	require.NoError(t, fs.Set(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("corrupt"), 0o600))

	reloaded := newFileStore(t, dir)
	require.True(t, reloaded.Get().Empty())
}

func TestFileStore_MissingDocumentIsEmpty(t *testing.T) {
	fs := newFileStore(t, t.TempDir())
	require.True(t, fs.Get().Empty())
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	fs := newFileStore(t, t.TempDir())
	require.NoError(t, fs.Set(token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	require.True(t, fs.Get().Empty())
}
