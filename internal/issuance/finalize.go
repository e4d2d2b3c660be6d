package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Finalize closes the sale if its window has ended and settles it exactly
// once. Below the soft cap the sale enters Refunding and the presale and
// liquidity pools return to the owner. Otherwise the sale is Finalized: unsold
// tokens return to the owner, the liquidity reserve is locked and the rest of
// the raise becomes owner proceeds.
func (in *Instance) Finalize(now int64) (FinalizeOutcome, error) {
	p := in.Presale
	if p == nil {
		return FinalizeOutcome{}, ErrNoPresale
	}
	p.Close(now)
	switch p.Status {
	case StateFinalized, StateRefunding:
		return FinalizeOutcome{}, fmt.Errorf("%w: state %s", ErrAlreadyFinalized, p.Status)
	case StateClosed:
	default:
		return FinalizeOutcome{}, fmt.Errorf("%w: state %s at %d", ErrNotClosed, p.State(now), now)
	}

	owner := in.Issuance.Owner
	out := FinalizeOutcome{
		TotalContributed: new(big.Int).Set(p.TotalContributed),
		TokensSold:       new(big.Int),
		UnsoldTokens:     new(big.Int),
		LiquidityTokens:  new(big.Int),
		LiquidityNative:  new(big.Int),
		Proceeds:         new(big.Int),
	}

	if p.TotalContributed.Cmp(p.Config.SoftCap) < 0 {
		unsold := in.Ledger.BalanceOf(PresaleVault)
		liq := in.Ledger.BalanceOf(LiquidityVault)
		if err := in.sweep(PresaleVault, owner, unsold); err != nil {
			return FinalizeOutcome{}, err
		}
		if err := in.sweep(LiquidityVault, owner, liq); err != nil {
			return FinalizeOutcome{}, err
		}
		p.Status = StateRefunding
		out.State = StateRefunding
		out.UnsoldTokens = unsold.Add(unsold, liq)
		return out, nil
	}

	unlockAt, err := addDuration(now, p.Config.LiquidityLockDuration)
	if err != nil {
		return FinalizeOutcome{}, fmt.Errorf("liquidity unlock: %w", err)
	}
	sold := p.TokensSold()
	unsold := new(big.Int).Sub(in.Ledger.BalanceOf(PresaleVault), sold)
	if unsold.Sign() < 0 {
		panic(fmt.Sprintf("issuance: presale vault short by %s", new(big.Int).Neg(unsold)))
	}
	liqTokens := MulBps(in.Issuance.InitialSupply, in.LiquidityBps)
	excess := new(big.Int).Sub(in.Ledger.BalanceOf(LiquidityVault), liqTokens)
	if excess.Sign() < 0 {
		panic(fmt.Sprintf("issuance: liquidity vault short by %s", new(big.Int).Neg(excess)))
	}
	liqNative := MulBps(p.TotalContributed, in.LiquidityBps)
	proceeds := new(big.Int).Sub(p.TotalContributed, liqNative)

	if err := in.sweep(PresaleVault, owner, unsold); err != nil {
		return FinalizeOutcome{}, err
	}
	if err := in.sweep(LiquidityVault, owner, excess); err != nil {
		return FinalizeOutcome{}, err
	}
	if err := in.Lock(liqTokens, liqNative, unlockAt, owner); err != nil {
		return FinalizeOutcome{}, err
	}

	p.Status = StateFinalized
	p.Finalized = true
	p.Proceeds = proceeds

	out.State = StateFinalized
	out.TokensSold = sold
	out.UnsoldTokens = unsold
	out.LiquidityTokens = liqTokens
	out.LiquidityNative = liqNative
	out.Proceeds = new(big.Int).Set(proceeds)
	out.LiquidityUnlocksAt = unlockAt
	return out, nil
}

func (in *Instance) sweep(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	return in.Ledger.Transfer(from, to, amount)
}

// ClaimTokens moves the contributor's purchased tokens out of the presale
// vault. The record is zeroed first.
func (in *Instance) ClaimTokens(contributor common.Address) (*big.Int, error) {
	p := in.Presale
	if p == nil {
		return nil, ErrNoPresale
	}
	if p.Status != StateFinalized {
		return nil, fmt.Errorf("%w: state %s", ErrNotFinalized, p.Status)
	}
	c, ok := p.Contributions[contributor]
	if !ok || c.Claimed || zeroIfNil(c.TokensOwed).Sign() == 0 {
		return nil, fmt.Errorf("%w: no tokens owed to %s", ErrNothingToClaim, contributor.Hex())
	}

	amount := c.TokensOwed
	c.TokensOwed = new(big.Int)
	c.Claimed = true
	if err := in.Ledger.Transfer(PresaleVault, contributor, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// ClaimRefund zeroes the contributor's record after a failed sale and
// returns the native amount to pay back.
func (in *Instance) ClaimRefund(contributor common.Address) (*big.Int, error) {
	p := in.Presale
	if p == nil {
		return nil, ErrNoPresale
	}
	if p.Status != StateRefunding {
		return nil, fmt.Errorf("%w: state %s", ErrNotRefunding, p.Status)
	}
	c, ok := p.Contributions[contributor]
	if !ok || c.Refunded || zeroIfNil(c.Amount).Sign() == 0 {
		return nil, fmt.Errorf("%w: no refund for %s", ErrNothingToClaim, contributor.Hex())
	}

	amount := c.Amount
	c.Amount = new(big.Int)
	c.TokensOwed = new(big.Int)
	c.Refunded = true
	p.Escrow = new(big.Int).Sub(p.Escrow, amount)
	return amount, nil
}

// RecreditRefund undoes ClaimRefund after the payout failed.
func (in *Instance) RecreditRefund(contributor common.Address, amount *big.Int) {
	p := in.Presale
	c := p.Contributions[contributor]
	c.Amount = new(big.Int).Set(amount)
	c.TokensOwed = TokensForContribution(amount, p.Config.Rate)
	c.Refunded = false
	p.Escrow = new(big.Int).Add(p.Escrow, amount)
}

// ClaimProceeds zeroes the owner's proceeds and returns them.
func (in *Instance) ClaimProceeds(caller common.Address) (*big.Int, error) {
	p := in.Presale
	if p == nil {
		return nil, ErrNoPresale
	}
	if err := in.requireOwner(caller); err != nil {
		return nil, err
	}
	if p.Status != StateFinalized {
		return nil, fmt.Errorf("%w: state %s", ErrNotFinalized, p.Status)
	}
	if zeroIfNil(p.Proceeds).Sign() == 0 {
		return nil, fmt.Errorf("%w: no proceeds", ErrNothingToClaim)
	}

	amount := p.Proceeds
	p.Proceeds = new(big.Int)
	p.Escrow = new(big.Int).Sub(p.Escrow, amount)
	return amount, nil
}

// RecreditProceeds returns amount to the owner's claimable proceeds after a
// failed payout. A failed liquidity native payout lands here as well.
func (in *Instance) RecreditProceeds(amount *big.Int) {
	p := in.Presale
	p.Proceeds = new(big.Int).Add(zeroIfNil(p.Proceeds), amount)
	p.Escrow = new(big.Int).Add(p.Escrow, amount)
}
