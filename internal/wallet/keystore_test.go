package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// normaliseHexKey
// ---------------------------------------------------------------------------

func TestNormaliseHexKey(t *testing.T) {
	cases := map[string]string{
		"0xabc123":  "abc123",
		"0Xabc123":  "abc123",
		"abc123":    "abc123",
		"  0xabc  ": "abc",
		"0x":        "",
		"":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normaliseHexKey(in), "input %q", in)
	}
}

// ---------------------------------------------------------------------------
// Keystore (file backend)
// ---------------------------------------------------------------------------

// testKeystore returns a file-backed Keystore isolated to a temp directory.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "tokenhub-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: keyring.FixedStringPrompt("testpass"),
	})
	require.NoError(t, err)
	return NewKeystore(ring)
}

func TestKeystoreRoundTrip(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("alice", "0xDEADbeef")
	require.NoError(t, err)
	assert.Equal(t, "tokenhub.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "DEADbeef", got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)

	// deleting twice is fine
	assert.NoError(t, ks.Delete(ref))
}

func TestDefaultKeystoreUsesPasswordEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "pw")
	ks, err := DefaultKeystore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, ks)
}

// ---------------------------------------------------------------------------
// InMemoryKeystore
// ---------------------------------------------------------------------------

func TestInMemoryKeystore(t *testing.T) {
	var ks KeystoreBackend = NewInMemoryKeystore()

	ref, err := ks.Store("bob", "0xabc")
	require.NoError(t, err)
	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)
}
