package issuance_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/issuance"
)

const (
	day   = int64(86400)
	start = int64(1_700_000_000)
	end   = start + 7*day
)

var (
	owner    = addr(0xA0)
	team     = addr(0xB1)
	treasury = addr(0xB2)
	alice    = addr(0xC1)
	bob      = addr(0xC2)
	carol    = addr(0xC3)
)

func addr(n int64) common.Address { return common.BigToAddress(big.NewInt(n)) }

// eth returns n whole units at 18 decimals.
func eth(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether)) }

func big0(n int64) *big.Int { return big.NewInt(n) }

// presaleConfig: 50/100 ETH caps, 1..60 ETH per contributor, 1000 tokens/ETH,
// 30 day liquidity lock.
func presaleConfig() *issuance.PresaleConfig {
	return &issuance.PresaleConfig{
		SoftCap:               eth(50),
		HardCap:               eth(100),
		MinContribution:       eth(1),
		MaxContribution:       eth(60),
		StartTime:             start,
		EndTime:               end,
		Rate:                  eth(1000),
		LiquidityLockDuration: 30 * day,
	}
}

// presaleRequest mints 1,000,000 tokens: 20% presale, 10% liquidity, 30%
// vesting team, 40% treasury.
func presaleRequest() issuance.CreateRequest {
	return issuance.CreateRequest{
		Issuance: issuance.Issuance{
			Name:          "Antonio",
			Symbol:        "ANT",
			Decimals:      18,
			InitialSupply: eth(1_000_000),
			MaxSupply:     eth(2_000_000),
			Owner:         owner,
		},
		Allocations: []issuance.WalletAllocation{
			{Wallet: team, Bps: 3000, VestingEnabled: true, VestingDuration: 365 * day, CliffDuration: 30 * day, Revocable: true},
			{Wallet: treasury, Bps: 4000},
		},
		PresaleBps:   2000,
		LiquidityBps: 1000,
		Presale:      presaleConfig(),
	}
}

func newPresaleInstance(t *testing.T) *issuance.Instance {
	t.Helper()
	in, err := issuance.New(presaleRequest(), start-day)
	require.NoError(t, err)
	return in
}

func requireSupplyInvariant(t *testing.T, in *issuance.Instance) {
	t.Helper()
	require.Equal(t, 0, in.Ledger.SumBalances().Cmp(in.Ledger.TotalSupply),
		"sum(balances)=%s total=%s", in.Ledger.SumBalances(), in.Ledger.TotalSupply)
}

func requireKind(t *testing.T, err error, want issuance.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := issuance.KindOf(err)
	require.True(t, ok, "untyped error: %v", err)
	require.Equal(t, want, got, "error: %v", err)
}
