package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/getantonio/tokenhub/internal/wallet"
)

const (
	maxBodyBytes = 1 << 20
	// MaxDeadlineSkew bounds how far ahead a signed deadline may be.
	MaxDeadlineSkew = int64(15 * 60)
)

var errSignature = errors.New("invalid signature")

// replayGuard remembers accepted signatures until their deadline passes.
type replayGuard struct {
	mu   sync.Mutex
	seen map[string]int64
}

func newReplayGuard() *replayGuard {
	return &replayGuard{seen: make(map[string]int64)}
}

func (g *replayGuard) admit(sig string, deadline, now int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, exp := range g.seen {
		if exp < now {
			delete(g.seen, k)
		}
	}
	if _, dup := g.seen[sig]; dup {
		return fmt.Errorf("%w: already used", errSignature)
	}
	g.seen[sig] = deadline
	return nil
}

// readSigned decodes the body into dst and, unless verification is off,
// checks the EIP-191 signature in wallet.SignatureHeader against the caller.
// The signature covers the method and path as well as the body.
func (s *Server) readSigned(w http.ResponseWriter, r *http.Request, dst Signed) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("reading body: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("decoding body: %v", err)
	}
	if dst.Signer() == (common.Address{}) {
		return badRequest("caller is required")
	}
	if !s.verify {
		return nil
	}

	now := s.eng.Now()
	deadline := dst.Expiry()
	switch {
	case deadline == 0:
		return badRequest("deadline is required")
	case deadline < now:
		return fmt.Errorf("%w: deadline %d has passed", errSignature, deadline)
	case deadline > now+MaxDeadlineSkew:
		return badRequest("deadline is more than %d seconds ahead", MaxDeadlineSkew)
	}

	sig := strings.ToLower(strings.TrimSpace(r.Header.Get(wallet.SignatureHeader)))
	if sig == "" {
		return fmt.Errorf("%w: missing %s header", errSignature, wallet.SignatureHeader)
	}
	if err := wallet.VerifyIntent(r.Method, r.URL.Path, body, sig, dst.Signer()); err != nil {
		if errors.Is(err, wallet.ErrSignatureMismatch) {
			return err
		}
		return fmt.Errorf("%w: %v", errSignature, err)
	}
	return s.replay.admit(sig, deadline, now)
}
