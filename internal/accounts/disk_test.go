package accounts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCred(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestDiskStoreList(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "alice.json", `{"type":"gemini","email":"alice@example.com","access_token":"at","refresh_token":"rt","project_id":"p1"}`)
	writeCred(t, dir, "bob.json", `{"type":"claude","email":"bob@example.com"}`)
	writeCred(t, dir, "notes.txt", "not a credential")
	writeCred(t, dir, "broken.json", "{not json")

	store := NewDiskStore(dir, zap.NewNop())
	accounts := store.List()
	require.Len(t, accounts, 2)

	byID := make(map[string]Account)
	for _, a := range accounts {
		byID[a.ID] = a
	}

	alice := byID["alice"]
	assert.Equal(t, "alice.json", alice.Name)
	assert.Equal(t, "gemini", alice.Type)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, "p1", alice.ProjectID)
	assert.True(t, alice.HasAccessToken)
	assert.True(t, alice.HasRefreshToken)
	assert.Equal(t, SourceFile, alice.Source)
	assert.NotEmpty(t, alice.Raw)

	bob := byID["bob"]
	assert.False(t, bob.HasAccessToken)
	assert.False(t, bob.HasRefreshToken)
}

func TestDiskStoreListMissingDir(t *testing.T) {
	store := NewDiskStore(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	assert.Empty(t, store.List())
}

func TestDiskStoreListUnknownType(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "mystery.json", `{"email":"x@example.com"}`)

	store := NewDiskStore(dir, zap.NewNop())
	accounts := store.List()
	require.Len(t, accounts, 1)
	assert.Equal(t, "unknown", accounts[0].Type)
}

func TestDiskStoreDownload(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "alice.json", `{"type":"gemini"}`)

	store := NewDiskStore(dir, zap.NewNop())

	// Both addressing styles work: bare ID and full file name.
	for _, name := range []string{"alice", "alice.json"} {
		raw, err := store.Download(name)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "gemini", decoded["type"])
	}

	_, err := store.Download("carol")
	assert.Error(t, err)
}

func TestDiskStoreDelete(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "alice.json", `{"type":"gemini"}`)

	store := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, store.Delete("alice"))

	_, err := os.Stat(filepath.Join(dir, "alice.json"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, store.Delete("alice"))
}

func TestServiceLocalMode(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "alice.json", `{"type":"gemini","email":"alice@example.com"}`)

	svc := NewService(
		NewManagementClient("http://127.0.0.1:1", ""),
		NewDiskStore(dir, zap.NewNop()),
		zap.NewNop(),
	)

	assert.Equal(t, "local", svc.Mode())

	accounts := svc.List(t.Context())
	require.Len(t, accounts, 1)

	account, ok := svc.Find(t.Context(), "alice")
	require.True(t, ok)
	assert.Equal(t, "alice.json", account.Name)

	raw, err := svc.Download(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))

	require.NoError(t, svc.Delete(t.Context(), "alice"))
	_, ok = svc.Find(t.Context(), "alice")
	assert.False(t, ok)
}
