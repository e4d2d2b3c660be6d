package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/getantonio/tokenhub/internal/issuance"
)

// Payout kinds.
const (
	PayoutRefund    = "refund"
	PayoutProceeds  = "proceeds"
	PayoutLiquidity = "liquidity"
)

// Payment is one native-currency transfer out of presale escrow.
type Payment struct {
	IssuanceID issuance.ID
	Kind       string
	To         common.Address
	Amount     *big.Int
}

// Payer moves native currency to a recipient. It is called after the claim
// has been recorded and the instance lock released.
type Payer interface {
	Pay(ctx context.Context, p Payment) error
}

// PayerFunc adapts a function to Payer.
type PayerFunc func(ctx context.Context, p Payment) error

// Pay calls f.
func (f PayerFunc) Pay(ctx context.Context, p Payment) error { return f(ctx, p) }

// RecordingPayer accepts every payment and keeps per-recipient totals. It is
// the default payout channel for local runs and simulations.
type RecordingPayer struct {
	mu       sync.Mutex
	payments []Payment
	totals   map[common.Address]*big.Int
}

// NewRecordingPayer returns an empty RecordingPayer.
func NewRecordingPayer() *RecordingPayer {
	return &RecordingPayer{totals: make(map[common.Address]*big.Int)}
}

// Pay records p.
func (r *RecordingPayer) Pay(_ context.Context, p Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.Amount = new(big.Int).Set(p.Amount)
	r.payments = append(r.payments, p)
	t, ok := r.totals[p.To]
	if !ok {
		t = new(big.Int)
		r.totals[p.To] = t
	}
	t.Add(t, p.Amount)
	return nil
}

// Paid returns the total paid to addr.
func (r *RecordingPayer) Paid(addr common.Address) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.totals[addr]; ok {
		return new(big.Int).Set(t)
	}
	return new(big.Int)
}

// Payments returns a copy of every recorded payment, in order.
func (r *RecordingPayer) Payments() []Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payment(nil), r.payments...)
}

// JournalPayer appends every payment as one JSON line to a file. Local runs
// use it as the settlement record the operator pays out from.
type JournalPayer struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
}

// journalLine is the on-disk shape of one payment.
type journalLine struct {
	IssuanceID issuance.ID    `json:"issuance_id"`
	Kind       string         `json:"kind"`
	To         common.Address `json:"to"`
	Amount     string         `json:"amount"`
	At         int64          `json:"at"`
}

// NewJournalPayer writes to path, creating it on first payment.
func NewJournalPayer(path string) *JournalPayer {
	return &JournalPayer{path: path, clock: time.Now}
}

// Pay appends p to the journal.
func (j *JournalPayer) Pay(_ context.Context, p Payment) error {
	line, err := json.Marshal(journalLine{
		IssuanceID: p.IssuanceID,
		Kind:       p.Kind,
		To:         p.To,
		Amount:     p.Amount.String(),
		At:         j.clock().Unix(),
	})
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening payout journal: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing payout journal: %w", err)
	}
	return f.Close()
}

// ReadJournal returns every payment recorded at path, oldest first. A missing
// file is an empty journal.
func ReadJournal(path string) ([]Payment, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Payment
	for i, raw := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var l journalLine
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("payout journal line %d: %w", i+1, err)
		}
		amount, ok := new(big.Int).SetString(l.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("payout journal line %d: bad amount %q", i+1, l.Amount)
		}
		out = append(out, Payment{IssuanceID: l.IssuanceID, Kind: l.Kind, To: l.To, Amount: amount})
	}
	return out, nil
}
