package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Engine-held accounts. Their addresses are keccak-derived so they can never
// collide with a real key-controlled wallet in practice.
var (
	PresaleVault   = vaultAddress("presale")
	LiquidityVault = vaultAddress("liquidity")
	VestingVault   = vaultAddress("vesting")
)

func vaultAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("tokenhub/vault/" + label))[12:])
}

func isVault(a common.Address) bool {
	return a == PresaleVault || a == LiquidityVault || a == VestingVault
}

// MintEntry is one recipient of the initial mint.
type MintEntry struct {
	Holder common.Address
	Bps    uint32
}

// Ledger owns total supply and per-holder balances.
// Invariant: the sum of Balances equals TotalSupply.
type Ledger struct {
	TotalSupply *big.Int                    `json:"total_supply"`
	MaxSupply   *big.Int                    `json:"max_supply"`
	Balances    map[common.Address]*big.Int `json:"balances"`
}

// NewLedger returns an empty ledger capped at maxSupply.
func NewLedger(maxSupply *big.Int) *Ledger {
	return &Ledger{
		TotalSupply: new(big.Int),
		MaxSupply:   cloneBig(maxSupply),
		Balances:    make(map[common.Address]*big.Int),
	}
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	out := &Ledger{
		TotalSupply: cloneBig(l.TotalSupply),
		MaxSupply:   cloneBig(l.MaxSupply),
		Balances:    make(map[common.Address]*big.Int, len(l.Balances)),
	}
	for k, v := range l.Balances {
		out.Balances[k] = cloneBig(v)
	}
	return out
}

// BalanceOf returns a copy of holder's balance.
func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	if b, ok := l.Balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// MintInitial splits supply across entries by basis points and credits each
// holder. The truncation remainder goes to the last entry. It returns the
// amount minted per entry, in entry order.
func (l *Ledger) MintInitial(supply *big.Int, entries []MintEntry) ([]*big.Int, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no mint entries", ErrAllocationSum)
	}
	if l.TotalSupply.Sign() != 0 {
		return nil, fmt.Errorf("%w: initial mint on a non-empty ledger", ErrInvalidSupply)
	}
	if err := checkPositive("initial supply", supply); err != nil {
		return nil, err
	}
	if supply.Cmp(l.MaxSupply) > 0 {
		return nil, fmt.Errorf("%w: initial %s > max %s", ErrMaxSupplyExceeded, supply, l.MaxSupply)
	}
	shares := make([]uint32, len(entries))
	var sum uint64
	for i, e := range entries {
		if e.Holder == (common.Address{}) {
			return nil, fmt.Errorf("%w: mint entry %d", ErrZeroAddress, i)
		}
		shares[i] = e.Bps
		sum += uint64(e.Bps)
	}
	if sum != BpsDenominator {
		return nil, fmt.Errorf("%w: mint entries total %d bps", ErrAllocationSum, sum)
	}

	parts := SplitByBps(supply, shares)
	for i, e := range entries {
		l.credit(e.Holder, parts[i])
	}
	l.TotalSupply.Add(l.TotalSupply, supply)
	return parts, nil
}

// MintAdditional mints amount to holder within MaxSupply.
func (l *Ledger) MintAdditional(to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := checkPositive("mint amount", amount); err != nil {
		return err
	}
	next := new(big.Int).Add(l.TotalSupply, amount)
	if next.Cmp(l.MaxSupply) > 0 {
		return fmt.Errorf("%w: supply %s + %s > max %s", ErrMaxSupplyExceeded, l.TotalSupply, amount, l.MaxSupply)
	}
	l.credit(to, amount)
	l.TotalSupply = next
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := checkAmount("transfer amount", amount); err != nil {
		return err
	}
	bal := l.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// Burn destroys amount from holder's balance.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if err := checkPositive("burn amount", amount); err != nil {
		return err
	}
	bal := l.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, burning %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	l.debit(from, amount)
	l.TotalSupply.Sub(l.TotalSupply, amount)
	return nil
}

// SumBalances returns the sum of all balances; equal to TotalSupply.
func (l *Ledger) SumBalances() *big.Int {
	sum := new(big.Int)
	for _, b := range l.Balances {
		sum.Add(sum, b)
	}
	return sum
}

func (l *Ledger) credit(holder common.Address, amount *big.Int) {
	if b, ok := l.Balances[holder]; ok {
		b.Add(b, amount)
		return
	}
	l.Balances[holder] = new(big.Int).Set(amount)
}

// debit assumes the caller already checked the balance.
func (l *Ledger) debit(holder common.Address, amount *big.Int) {
	b := l.Balances[holder]
	b.Sub(b, amount)
	if b.Sign() == 0 {
		delete(l.Balances, holder)
	}
}
