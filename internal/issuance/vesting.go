package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Releasable returns the amount the beneficiary can claim at now.
// Vesting is linear after the cliff and floors on integer division. A revoked
// schedule is frozen at its released amount.
func (v *VestingSchedule) Releasable(now int64) *big.Int {
	released := zeroIfNil(v.ReleasedAmount)
	if v.Revoked {
		return new(big.Int)
	}
	if now < v.StartTime {
		return new(big.Int)
	}
	elapsed := now - v.StartTime
	if elapsed < v.CliffDuration {
		return new(big.Int)
	}
	if elapsed >= v.VestingDuration {
		return new(big.Int).Sub(v.TotalAmount, released)
	}
	vested := new(big.Int).Mul(v.TotalAmount, big.NewInt(elapsed))
	vested.Quo(vested, big.NewInt(v.VestingDuration))
	out := vested.Sub(vested, released)
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// Unvested returns TotalAmount - ReleasedAmount.
func (v *VestingSchedule) Unvested() *big.Int {
	return new(big.Int).Sub(v.TotalAmount, zeroIfNil(v.ReleasedAmount))
}

// ReleasableVested looks up beneficiary's schedule and returns its releasable
// amount at now.
func (in *Instance) ReleasableVested(beneficiary common.Address, now int64) (*big.Int, error) {
	v, ok := in.Vesting[beneficiary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVesting, beneficiary.Hex())
	}
	return v.Releasable(now), nil
}

// ClaimVested releases the vested amount to the beneficiary. The schedule's
// released amount is bumped before the vault transfer.
func (in *Instance) ClaimVested(beneficiary common.Address, now int64) (*big.Int, error) {
	v, ok := in.Vesting[beneficiary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVesting, beneficiary.Hex())
	}
	amount := v.Releasable(now)
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s at %d", ErrNothingToRelease, beneficiary.Hex(), now)
	}
	if bal := in.Ledger.BalanceOf(VestingVault); bal.Cmp(amount) < 0 {
		// Vault and schedules disagree; only reachable through a corrupted record.
		panic(fmt.Sprintf("issuance: vesting vault holds %s, schedule releases %s", bal, amount))
	}

	v.ReleasedAmount = new(big.Int).Add(zeroIfNil(v.ReleasedAmount), amount)
	if err := in.Ledger.Transfer(VestingVault, beneficiary, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// RevokeVesting stops a revocable schedule and returns the unreleased
// remainder to the issuance owner. Only the owner may revoke.
func (in *Instance) RevokeVesting(caller, beneficiary common.Address) (*big.Int, error) {
	if err := in.requireOwner(caller); err != nil {
		return nil, err
	}
	v, ok := in.Vesting[beneficiary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVesting, beneficiary.Hex())
	}
	if !v.Revocable {
		return nil, fmt.Errorf("%w: %s", ErrNotRevocable, beneficiary.Hex())
	}
	if v.Revoked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRevoked, beneficiary.Hex())
	}

	remainder := v.Unvested()
	v.Revoked = true
	if remainder.Sign() > 0 {
		if err := in.Ledger.Transfer(VestingVault, in.Issuance.Owner, remainder); err != nil {
			return nil, err
		}
	}
	return remainder, nil
}

func (in *Instance) requireOwner(caller common.Address) error {
	if caller != in.Issuance.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}
