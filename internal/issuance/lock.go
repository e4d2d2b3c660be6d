package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Lock reserves the liquidity tokens (already held by the liquidity vault)
// and native amount until unlockTime. It may be called once.
func (in *Instance) Lock(tokenAmount, nativeAmount *big.Int, unlockTime int64, owner common.Address) error {
	if in.Liquidity != nil {
		return ErrLockAlreadyExists
	}
	if unlockTime < 0 || unlockTime > MaxTimestamp+MaxDuration {
		return fmt.Errorf("%w: unlock time %d", ErrTimeOutOfRange, unlockTime)
	}
	if err := checkAmount("liquidity tokens", tokenAmount); err != nil {
		return err
	}
	if err := checkAmount("liquidity native", nativeAmount); err != nil {
		return err
	}
	if bal := in.Ledger.BalanceOf(LiquidityVault); bal.Cmp(tokenAmount) < 0 {
		return fmt.Errorf("%w: liquidity vault holds %s, locking %s", ErrInsufficientBalance, bal, tokenAmount)
	}
	in.Liquidity = &LiquidityLock{
		TokenAmount:  new(big.Int).Set(tokenAmount),
		NativeAmount: new(big.Int).Set(nativeAmount),
		UnlockTime:   unlockTime,
		Locked:       true,
		Owner:        owner,
	}
	return nil
}

// WithdrawLiquidity releases the whole lock to its owner: tokens move through
// the ledger and the returned lock snapshot carries the native amount for the
// caller to pay out. One-shot.
func (in *Instance) WithdrawLiquidity(caller common.Address, now int64) (*LiquidityLock, error) {
	l := in.Liquidity
	if l == nil {
		return nil, ErrNoLiquidityLock
	}
	if caller != l.Owner {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	if now < l.UnlockTime {
		return nil, fmt.Errorf("%w: until %d, now %d", ErrStillLocked, l.UnlockTime, now)
	}
	if !l.Locked {
		return nil, ErrAlreadyWithdrawn
	}

	released := *l
	released.TokenAmount = new(big.Int).Set(l.TokenAmount)
	released.NativeAmount = new(big.Int).Set(l.NativeAmount)
	released.Locked = false

	l.Locked = false
	if err := in.sweep(LiquidityVault, l.Owner, l.TokenAmount); err != nil {
		return nil, err
	}
	if in.Presale != nil {
		in.Presale.Escrow = new(big.Int).Sub(in.Presale.Escrow, l.NativeAmount)
	}
	return &released, nil
}
