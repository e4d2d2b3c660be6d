package wallet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureHeader carries the hex EIP-191 signature of a request intent.
const SignatureHeader = "X-Tokenhub-Signature"

var (
	// ErrSignatureMismatch is returned when a signature recovers to another address.
	ErrSignatureMismatch = errors.New("signature does not match caller")
	// ErrMalleableSignature is returned for a high-s or malformed-v signature.
	ErrMalleableSignature = errors.New("non-canonical signature")
)

// IntentMessage is the signed form of a request: method, path and body, so a
// signature cannot be replayed against another route or issuance.
//
//	POST /v1/issuances/0x…/claims/proceeds\n{"caller":…}
func IntentMessage(method, path string, body []byte) []byte {
	msg := make([]byte, 0, len(method)+len(path)+2+len(body))
	msg = append(msg, method...)
	msg = append(msg, ' ')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	return append(msg, body...)
}

// SignMessage signs a message using EIP-191 (personal_sign).
// Returns a 65-byte signature (R || S || V) with V in {27, 28}.
func SignMessage(w *Wallet, ks KeystoreBackend, message []byte) ([]byte, error) {
	if !w.CanSign() {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, w.Name)
	}

	hexKey, err := ks.Retrieve(w.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	sig, err := crypto.Sign(eip191Hash(message), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// VerifyMessage recovers the signer address from an EIP-191 signature.
func VerifyMessage(message, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	recoverSig := make([]byte, crypto.SignatureLength)
	copy(recoverSig, sig)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}
	r := new(big.Int).SetBytes(recoverSig[:32])
	sv := new(big.Int).SetBytes(recoverSig[32:64])
	if !crypto.ValidateSignatureValues(recoverSig[64], r, sv, true) {
		return common.Address{}, ErrMalleableSignature
	}

	pubKey, err := crypto.SigToPub(eip191Hash(message), recoverSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// VerifyIntent checks that sigHex is caller's EIP-191 signature of the
// request's IntentMessage.
func VerifyIntent(method, path string, body []byte, sigHex string, caller common.Address) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	got, err := VerifyMessage(IntentMessage(method, path, body), sig)
	if err != nil {
		return err
	}
	if got != caller {
		return fmt.Errorf("%w: signed by %s", ErrSignatureMismatch, got.Hex())
	}
	return nil
}

func eip191Hash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
