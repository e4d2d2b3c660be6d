package issuance

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// maxDecimals keeps one whole token representable in uint256.
const maxDecimals = 77

// CreateRequest is everything needed to create an Issuance. Presale is nil
// for a plain token; then PresaleBps and LiquidityBps must be zero. Salt
// separates otherwise identical requests made in the same second.
type CreateRequest struct {
	Issuance     Issuance           `json:"issuance"`
	Allocations  []WalletAllocation `json:"allocations"`
	PresaleBps   uint32             `json:"presale_bps"`
	LiquidityBps uint32             `json:"liquidity_bps"`
	Presale      *PresaleConfig     `json:"presale,omitempty"`
	Salt         string             `json:"salt,omitempty"`
}

// Validate runs every creation check without side effects.
func (r CreateRequest) Validate() error {
	is := r.Issuance
	if strings.TrimSpace(is.Name) == "" || strings.TrimSpace(is.Symbol) == "" {
		return ErrInvalidMetadata
	}
	if is.Decimals > maxDecimals {
		return fmt.Errorf("%w: %d decimals", ErrInvalidMetadata, is.Decimals)
	}
	if is.Owner == (common.Address{}) {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	if isVault(is.Owner) {
		return fmt.Errorf("%w: owner %s", ErrReservedAddress, is.Owner.Hex())
	}
	if err := checkPositive("initial supply", is.InitialSupply); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSupply, err)
	}
	if err := checkPositive("max supply", is.MaxSupply); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSupply, err)
	}
	if is.InitialSupply.Cmp(is.MaxSupply) > 0 {
		return fmt.Errorf("%w: initial %s > max %s", ErrInvalidSupply, is.InitialSupply, is.MaxSupply)
	}

	if err := ValidateAllocations(r.Allocations, r.PresaleBps, r.LiquidityBps); err != nil {
		return err
	}

	if r.Presale == nil {
		if r.PresaleBps != 0 || r.LiquidityBps != 0 {
			return fmt.Errorf("%w: presale/liquidity share without a presale", ErrInvalidPresale)
		}
		return nil
	}
	if err := ValidatePresaleConfig(*r.Presale); err != nil {
		return err
	}
	if r.PresaleBps == 0 {
		return fmt.Errorf("%w: presale share is zero", ErrInvalidPresale)
	}
	pool := MulBps(is.InitialSupply, r.PresaleBps)
	need := TokensForContribution(r.Presale.HardCap, r.Presale.Rate)
	if need.Cmp(pool) > 0 {
		return fmt.Errorf("%w: hard cap needs %s tokens, pool has %s", ErrPresaleAllocationTooSmall, need, pool)
	}
	return nil
}

// New validates r and builds a fresh Instance with the initial supply minted:
// presale vault, liquidity vault, then each allocation in order. Vesting
// allocations are minted into the vesting vault and get a schedule.
func New(r CreateRequest, now int64) (*Instance, error) {
	if err := checkTimestamp("creation time", now); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	in := &Instance{
		ID:           DeriveID(r, now),
		CreatedAt:    now,
		UpdatedAt:    now,
		Issuance:     r.Issuance.clone(),
		Allocations:  append([]WalletAllocation(nil), r.Allocations...),
		PresaleBps:   r.PresaleBps,
		LiquidityBps: r.LiquidityBps,
		Ledger:       NewLedger(r.Issuance.MaxSupply),
		Vesting:      make(map[common.Address]*VestingSchedule),
	}

	var entries []MintEntry
	if r.Presale != nil {
		in.Presale = NewPresale(*r.Presale)
		entries = append(entries,
			MintEntry{Holder: PresaleVault, Bps: r.PresaleBps},
			MintEntry{Holder: LiquidityVault, Bps: r.LiquidityBps},
		)
	}
	offset := len(entries)
	for _, a := range r.Allocations {
		holder := a.Wallet
		if a.VestingEnabled {
			holder = VestingVault
		}
		entries = append(entries, MintEntry{Holder: holder, Bps: a.Bps})
	}

	parts, err := in.Ledger.MintInitial(r.Issuance.InitialSupply, entries)
	if err != nil {
		return nil, err
	}

	for i, a := range r.Allocations {
		if !a.VestingEnabled {
			continue
		}
		start := a.VestingStart
		if start == 0 {
			start = now
		}
		in.Vesting[a.Wallet] = &VestingSchedule{
			Beneficiary:     a.Wallet,
			TotalAmount:     parts[offset+i],
			StartTime:       start,
			CliffDuration:   a.CliffDuration,
			VestingDuration: a.VestingDuration,
			ReleasedAmount:  new(big.Int),
			Revocable:       a.Revocable,
		}
	}
	return in, nil
}

// DeriveID hashes the owner, symbol, name, creation time and salt.
func DeriveID(r CreateRequest, now int64) ID {
	h := sha3.NewLegacyKeccak256()
	h.Write(r.Issuance.Owner.Bytes())
	h.Write([]byte(r.Issuance.Symbol))
	h.Write([]byte{0})
	h.Write([]byte(r.Issuance.Name))
	h.Write([]byte{0})
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now))
	h.Write(ts[:])
	h.Write([]byte(r.Salt))
	return ID(common.BytesToHash(h.Sum(nil)).Hex())
}

// --- holder operations ---

// Mint creates amount new tokens for to. Owner-only, bounded by MaxSupply.
func (in *Instance) Mint(caller, to common.Address, amount *big.Int) error {
	if err := in.requireOwner(caller); err != nil {
		return err
	}
	if isVault(to) {
		return fmt.Errorf("%w: %s", ErrReservedAddress, to.Hex())
	}
	return in.Ledger.MintAdditional(to, amount)
}

// Transfer moves tokens between two holders. Vault balances only move
// through claims, finalize and revoke.
func (in *Instance) Transfer(from, to common.Address, amount *big.Int) error {
	if err := checkPositive("transfer amount", amount); err != nil {
		return err
	}
	if isVault(from) || isVault(to) {
		return fmt.Errorf("%w: vault transfer", ErrReservedAddress)
	}
	return in.Ledger.Transfer(from, to, amount)
}

// Burn destroys amount from holder.
func (in *Instance) Burn(holder common.Address, amount *big.Int) error {
	if isVault(holder) {
		return fmt.Errorf("%w: %s", ErrReservedAddress, holder.Hex())
	}
	return in.Ledger.Burn(holder, amount)
}

// PresaleState reports the presale's state at now.
func (in *Instance) PresaleState(now int64) (PresaleState, error) {
	if in.Presale == nil {
		return "", ErrNoPresale
	}
	return in.Presale.State(now), nil
}

// Status is a one-word summary for listings: the presale state, or "token"
// when there is no presale.
func (in *Instance) Status(now int64) string {
	if in.Presale == nil {
		return "token"
	}
	return string(in.Presale.State(now))
}
