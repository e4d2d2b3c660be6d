package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signer signs request intents for one signing wallet.
type Signer struct {
	wallet *Wallet
	ks     KeystoreBackend
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, ks KeystoreBackend) (*Signer, error) {
	if !w.CanSign() {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, w.Name)
	}
	return &Signer{wallet: w, ks: ks}, nil
}

// SignIntent returns the 0x-hex signature of a method, path and body to
// send in SignatureHeader.
func (s *Signer) SignIntent(method, path string, body []byte) (string, error) {
	sig, err := SignMessage(s.wallet, s.ks, IntentMessage(method, path, body))
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return s.wallet.Address
}
