package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

var (
	bpsDenominator = big.NewInt(BpsDenominator)

	// RateScale is the denominator of PresaleConfig.Rate: rates are quoted
	// per whole native coin.
	RateScale = big.NewInt(params.Ether)
)

// MulBps returns amount * bps / 10000, rounded down.
func MulBps(amount *big.Int, bps uint32) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bps)))
	return out.Quo(out, bpsDenominator)
}

// SplitByBps splits total into len(shares) parts by basis points using
// truncating division. The truncation remainder is assigned to the last
// part so the parts always sum to total exactly. shares must sum to 10000.
func SplitByBps(total *big.Int, shares []uint32) []*big.Int {
	if len(shares) == 0 {
		return nil
	}
	parts := make([]*big.Int, len(shares))
	assigned := new(big.Int)
	for i := 0; i < len(shares)-1; i++ {
		parts[i] = MulBps(total, shares[i])
		assigned.Add(assigned, parts[i])
	}
	last := new(big.Int).Sub(total, assigned)
	if last.Sign() < 0 {
		panic(fmt.Sprintf("issuance: split of %s over-assigned by %s", total, new(big.Int).Neg(last)))
	}
	parts[len(parts)-1] = last

	sum := new(big.Int)
	for _, p := range parts {
		sum.Add(sum, p)
	}
	if sum.Cmp(total) != 0 {
		panic(fmt.Sprintf("issuance: split parts sum %s != total %s", sum, total))
	}
	return parts
}

// TokensForContribution converts a native amount into token base units at
// rate (tokens per whole coin), rounded down.
func TokensForContribution(amount, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, rate)
	return out.Quo(out, RateScale)
}

// checkAmount rejects nil, negative or > uint256 values.
func checkAmount(name string, x *big.Int) error {
	if x == nil || x.Sign() < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidAmount, name)
	}
	if _, overflow := uint256.FromBig(x); overflow {
		return fmt.Errorf("%w: %s=%s", ErrAmountOverflow, name, x)
	}
	return nil
}

// checkPositive is checkAmount plus x > 0.
func checkPositive(name string, x *big.Int) error {
	if err := checkAmount(name, x); err != nil {
		return err
	}
	if x.Sign() == 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, name)
	}
	return nil
}
