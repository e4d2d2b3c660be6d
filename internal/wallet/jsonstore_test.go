package wallet_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/wallet"
)

// ---------------------------------------------------------------------------
// NewJSONStore / Load / Save
// ---------------------------------------------------------------------------

func TestJSONStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := wallet.NewJSONStore(path)

	wallets := []*wallet.Wallet{
		{Name: "alice", Address: common.HexToAddress("0x1111"), Type: wallet.TypeWatchOnly},
		{Name: "bob", Address: common.HexToAddress("0x2222"), Type: wallet.TypeSigning, KeyRef: "tokenhub.bob"},
	}
	require.NoError(t, store.Save(wallets))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Name)
	assert.Equal(t, common.HexToAddress("0x2222"), loaded[1].Address)
	assert.Equal(t, wallet.TypeSigning, loaded[1].Type)
	assert.Equal(t, "tokenhub.bob", loaded[1].KeyRef)
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	store := wallet.NewJSONStore(filepath.Join(t.TempDir(), "nonexistent.json"))

	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := wallet.NewJSONStore(path).Load()
	assert.Error(t, err)
}

func TestJSONStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, wallet.NewJSONStore(path).Save(nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
