package wallet_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/wallet"
)

func signingWallet(t *testing.T) (*wallet.Manager, *wallet.Wallet) {
	t.Helper()
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	w, err := mgr.AddWithKey("signer", testPrivKeyHex)
	require.NoError(t, err)
	return mgr, w
}

// ---------------------------------------------------------------------------
// SignMessage / VerifyMessage
// ---------------------------------------------------------------------------

func TestSignMessageRoundTrip(t *testing.T) {
	mgr, w := signingWallet(t)
	message := []byte(`{"issuance":"0x01","amount":"1.5"}`)

	sig, err := wallet.SignMessage(w, mgr.Keystore(), message)
	require.NoError(t, err)
	assert.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := wallet.VerifyMessage(message, sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, recovered.Hex())
}

func TestSignMessageIsDeterministic(t *testing.T) {
	mgr, w := signingWallet(t)

	a, err := wallet.SignMessage(w, mgr.Keystore(), []byte("x"))
	require.NoError(t, err)
	b, err := wallet.SignMessage(w, mgr.Keystore(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignMessageWatchOnlyFails(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	w, err := mgr.Add("watch", common.HexToAddress("0x01"))
	require.NoError(t, err)

	_, err = wallet.SignMessage(w, mgr.Keystore(), []byte("x"))
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)
}

func TestVerifyMessageBadLength(t *testing.T) {
	_, err := wallet.VerifyMessage([]byte("x"), make([]byte, 64))
	assert.Error(t, err)
}

func TestVerifyMessageTamperedBody(t *testing.T) {
	mgr, w := signingWallet(t)
	sig, err := wallet.SignMessage(w, mgr.Keystore(), []byte("original"))
	require.NoError(t, err)

	recovered, err := wallet.VerifyMessage([]byte("tampered"), sig)
	if err == nil {
		assert.NotEqual(t, testSignerAddr, recovered.Hex())
	}
}

// ---------------------------------------------------------------------------
// Signer / VerifyIntent
// ---------------------------------------------------------------------------

func TestSignerIntentVerifies(t *testing.T) {
	mgr, _ := signingWallet(t)
	s, err := mgr.Signer("signer")
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, s.Address().Hex())

	body := []byte(`{"amount":"10"}`)
	path := "/v1/issuances/0xaa/presale/contribute"
	sigHex, err := s.SignIntent("POST", path, body)
	require.NoError(t, err)
	assert.True(t, len(sigHex) == 132 && sigHex[:2] == "0x")

	require.NoError(t, wallet.VerifyIntent("POST", path, body, sigHex, s.Address()))

	err = wallet.VerifyIntent("POST", path, body, sigHex, common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, wallet.ErrSignatureMismatch)

	err = wallet.VerifyIntent("POST", path, body, "zz", s.Address())
	assert.Error(t, err)
}

func TestIntentSignatureIsBoundToRoute(t *testing.T) {
	mgr, _ := signingWallet(t)
	s, err := mgr.Signer("signer")
	require.NoError(t, err)

	body := []byte(`{"caller":"0x01","deadline":1}`)
	sigHex, err := s.SignIntent("POST", "/v1/issuances/0xaa/claims/proceeds", body)
	require.NoError(t, err)

	for _, path := range []string{
		"/v1/issuances/0xaa/liquidity/withdraw",
		"/v1/issuances/0xbb/claims/proceeds",
	} {
		err := wallet.VerifyIntent("POST", path, body, sigHex, s.Address())
		assert.ErrorIs(t, err, wallet.ErrSignatureMismatch, path)
	}
	err = wallet.VerifyIntent("PUT", "/v1/issuances/0xaa/claims/proceeds", body, sigHex, s.Address())
	assert.ErrorIs(t, err, wallet.ErrSignatureMismatch)
}

func TestVerifyMessageRejectsHighS(t *testing.T) {
	mgr, w := signingWallet(t)
	msg := []byte("intent")
	sig, err := wallet.SignMessage(w, mgr.Keystore(), msg)
	require.NoError(t, err)

	// (r, n-s, v^1) recovers the same key but is not canonical.
	n := crypto.S256().Params().N
	highS := new(big.Int).Sub(n, new(big.Int).SetBytes(sig[32:64]))
	flipped := make([]byte, len(sig))
	copy(flipped, sig)
	highS.FillBytes(flipped[32:64])
	flipped[64] = 27
	if sig[64] == 27 {
		flipped[64] = 28
	}

	_, err = wallet.VerifyMessage(msg, flipped)
	assert.ErrorIs(t, err, wallet.ErrMalleableSignature)
}

func TestSignerRejectsWatchOnly(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Add("watch", common.HexToAddress("0x01"))
	require.NoError(t, err)

	_, err = mgr.Signer("watch")
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)
}

func TestVerifyIntentAcceptsRawV(t *testing.T) {
	mgr, w := signingWallet(t)
	body := []byte("body")
	sig, err := wallet.SignMessage(w, mgr.Keystore(), wallet.IntentMessage("POST", "/v1/issuances", body))
	require.NoError(t, err)
	sig[64] -= 27

	require.NoError(t, wallet.VerifyIntent("POST", "/v1/issuances", body, hexutil.Encode(sig), w.Address))
}
