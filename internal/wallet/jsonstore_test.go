package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── NewJSONStore / Load / Save ───────────────────────────────────────────────

func TestJSONStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewJSONStore(path)

	wallets := []*Wallet{
		{Name: "alice", Address: "0x1111", KeyRef: "cryptopet.alice"},
		{Name: "bob", Address: "0x2222", KeyRef: "cryptopet.bob", IsDefault: true, CreatedAt: "2024-01-01T00:00:00Z"},
	}
	require.NoError(t, store.Save(wallets))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, wallets, loaded)
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "nonexistent.json"))

	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, wallets, "loading a missing file should return nil, nil")
}

func TestJSONStoreSaveRestrictivePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, NewJSONStore(path).Save([]*Wallet{{Name: "w", Address: "0x1"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0 { // Unix only
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o600))

	_, err := NewJSONStore(path).Load()
	require.Error(t, err)
}

// ─── WithStore option ─────────────────────────────────────────────────────────

func TestWithStoreOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	ks := NewInMemoryKeystore()

	mgr := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	_, err := mgr.AddWithKey("test-ws", testPrivKeyHex)
	require.NoError(t, err)

	// Reload from same path.
	mgr2 := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	w, err := mgr2.Get("test-ws")
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, w.Address)
	assert.True(t, w.IsDefault)
}
