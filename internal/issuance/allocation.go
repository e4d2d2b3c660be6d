package issuance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAllocations checks a wallet-allocation table against the presale
// and liquidity shares. It has no side effects.
func ValidateAllocations(allocs []WalletAllocation, presaleBps, liquidityBps uint32) error {
	if presaleBps > BpsDenominator {
		return fmt.Errorf("%w: presale %d bps", ErrBpsOutOfRange, presaleBps)
	}
	if liquidityBps > BpsDenominator {
		return fmt.Errorf("%w: liquidity %d bps", ErrBpsOutOfRange, liquidityBps)
	}

	sum := uint64(presaleBps) + uint64(liquidityBps)
	seen := make(map[common.Address]struct{}, len(allocs))
	for i, a := range allocs {
		if a.Wallet == (common.Address{}) {
			return fmt.Errorf("%w: allocation %d", ErrZeroAddress, i)
		}
		if isVault(a.Wallet) {
			return fmt.Errorf("%w: allocation %d targets reserved vault %s", ErrReservedAddress, i, a.Wallet.Hex())
		}
		if _, dup := seen[a.Wallet]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateWallet, a.Wallet.Hex())
		}
		seen[a.Wallet] = struct{}{}

		if a.Bps > BpsDenominator {
			return fmt.Errorf("%w: %s has %d bps", ErrBpsOutOfRange, a.Wallet.Hex(), a.Bps)
		}
		sum += uint64(a.Bps)

		if a.VestingEnabled {
			if a.VestingDuration <= 0 {
				return fmt.Errorf("%w: %s has zero vesting duration", ErrInvalidVesting, a.Wallet.Hex())
			}
			if err := checkDuration("vesting duration", a.VestingDuration); err != nil {
				return fmt.Errorf("%w: %s", err, a.Wallet.Hex())
			}
			if err := checkTimestamp("vesting start", a.VestingStart); err != nil {
				return fmt.Errorf("%w: %s", err, a.Wallet.Hex())
			}
			if a.CliffDuration < 0 || a.CliffDuration > a.VestingDuration {
				return fmt.Errorf("%w: %s cliff %ds exceeds duration %ds",
					ErrInvalidVesting, a.Wallet.Hex(), a.CliffDuration, a.VestingDuration)
			}
		}
	}

	if sum != BpsDenominator {
		return fmt.Errorf("%w: got %d bps", ErrAllocationSum, sum)
	}
	return nil
}

func checkTimestamp(name string, t int64) error {
	if t < 0 || t > MaxTimestamp {
		return fmt.Errorf("%w: %s %d", ErrTimeOutOfRange, name, t)
	}
	return nil
}

func checkDuration(name string, d int64) error {
	if d < 0 || d > MaxDuration {
		return fmt.Errorf("%w: %s %ds", ErrTimeOutOfRange, name, d)
	}
	return nil
}

// addDuration returns t+d after bounding both operands.
func addDuration(t, d int64) (int64, error) {
	if err := checkTimestamp("time", t); err != nil {
		return 0, err
	}
	if err := checkDuration("duration", d); err != nil {
		return 0, err
	}
	return t + d, nil
}
