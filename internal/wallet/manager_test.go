package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/wallet"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var watched = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

// ---------------------------------------------------------------------------
// Add / AddWithKey
// ---------------------------------------------------------------------------

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	_, err := mgr.Add("mywallet", watched)
	require.NoError(t, err)

	w, err := mgr.Get("mywallet")
	require.NoError(t, err)
	assert.Equal(t, "mywallet", w.Name)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.Equal(t, watched, w.Address)
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	_, err := mgr.Add("dup", watched)
	require.NoError(t, err)

	_, err = mgr.Add("dup", watched)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
	_, err = mgr.AddWithKey("dup", testPrivKeyHex)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddSigningWallet(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.AddWithKey("signer", testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, testSignerAddr, w.Address.Hex())
	assert.Equal(t, "tokenhub.signer", w.KeyRef)

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex[2:], stored)
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)

	_, err = mgr.Get("bad")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestGenerateProducesSigningWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	a, err := mgr.Generate("a")
	require.NoError(t, err)
	b, err := mgr.Generate("b")
	require.NoError(t, err)

	assert.True(t, a.CanSign())
	assert.NotEqual(t, a.Address, b.Address)
	assert.NotEqual(t, common.Address{}, a.Address)
}

// ---------------------------------------------------------------------------
// List / Remove / Default / Resolve
// ---------------------------------------------------------------------------

func TestListWalletsSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := mgr.Add(name, watched)
		require.NoError(t, err)
	}

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, "bob", list[1].Name)
	assert.Equal(t, "carol", list[2].Name)
}

func TestRemoveDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))
	w, err := mgr.AddWithKey("signer", testPrivKeyHex)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove("signer"))
	_, err = mgr.Get("signer")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve(w.KeyRef)
	assert.Error(t, err)

	assert.ErrorIs(t, mgr.Remove("signer"), wallet.ErrWalletNotFound)
}

func TestDefaultWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.Nil(t, mgr.Default())

	_, err := mgr.Add("only", watched)
	require.NoError(t, err)
	require.NotNil(t, mgr.Default())
	assert.Equal(t, "only", mgr.Default().Name)

	_, err = mgr.Add("second", common.HexToAddress("0x02"))
	require.NoError(t, err)
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.SetDefault("second"))
	assert.Equal(t, "second", mgr.Default().Name)

	assert.ErrorIs(t, mgr.SetDefault("ghost"), wallet.ErrWalletNotFound)
}

func TestResolveNameOrAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Add("alice", watched)
	require.NoError(t, err)

	got, err := mgr.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, watched, got)

	got, err = mgr.Resolve(testSignerAddr)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, got.Hex())

	_, err = mgr.Resolve("nobody")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestManagerPersistsThroughJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	ks := wallet.NewInMemoryKeystore()

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	_, err := mgr.AddWithKey("signer", testPrivKeyHex)
	require.NoError(t, err)
	require.NoError(t, mgr.SetDefault("signer"))

	reopened := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)), wallet.WithKeystore(ks))
	def := reopened.Default()
	require.NotNil(t, def)
	assert.Equal(t, testSignerAddr, def.Address.Hex())
	assert.True(t, def.CanSign())
}
