// Package storagetest holds the behaviour every storage.IssuanceStore must
// share, run against each implementation from its own tests.
package storagetest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/storage"
)

// NewInstance builds a valid plain-token instance created at now.
func NewInstance(t *testing.T, symbol string, now int64) *issuance.Instance {
	t.Helper()
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a0")
	in, err := issuance.New(issuance.CreateRequest{
		Issuance: issuance.Issuance{
			Name:          symbol + " token",
			Symbol:        symbol,
			Decimals:      18,
			InitialSupply: big.NewInt(1_000_000),
			MaxSupply:     big.NewInt(2_000_000),
			Owner:         owner,
		},
		Allocations: []issuance.WalletAllocation{
			{Wallet: owner, Bps: 7000},
			{Wallet: common.HexToAddress("0x00000000000000000000000000000000000000b1"), Bps: 3000},
		},
	}, now)
	require.NoError(t, err)
	return in
}

// Run exercises newStore against the IssuanceStore contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.IssuanceStore) {
	t.Run("InsertAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := NewInstance(t, "AAA", 100)

		require.NoError(t, s.Insert(ctx, in))

		got, err := s.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, "AAA", got.Issuance.Symbol)
		assert.Equal(t, 0, got.Ledger.TotalSupply.Cmp(big.NewInt(1_000_000)))
		assert.Equal(t, 0, got.Ledger.SumBalances().Cmp(got.Ledger.TotalSupply))
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := NewInstance(t, "DUP", 100)

		require.NoError(t, s.Insert(ctx, in))
		assert.ErrorIs(t, s.Insert(ctx, in), storage.ErrDuplicateKey)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "0xmissing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		in := NewInstance(t, "NF", 100)
		assert.ErrorIs(t, s.Update(context.Background(), in, 0), storage.ErrNotFound)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Insert(context.Background(), nil), storage.ErrInvalidInput)
		assert.ErrorIs(t, s.Insert(context.Background(), &issuance.Instance{}), storage.ErrInvalidInput)
	})

	t.Run("UpdateChecksVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := NewInstance(t, "VER", 100)
		require.NoError(t, s.Insert(ctx, in))

		next := in.Clone()
		next.Version = 1
		next.UpdatedAt = 200
		require.NoError(t, next.Burn(next.Issuance.Owner, big.NewInt(10)))
		require.NoError(t, s.Update(ctx, next, 0))

		stale := in.Clone()
		stale.Version = 1
		assert.ErrorIs(t, s.Update(ctx, stale, 0), storage.ErrVersionConflict)

		got, err := s.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.Version)
		assert.Equal(t, int64(200), got.UpdatedAt)
		assert.Equal(t, 0, got.Ledger.TotalSupply.Cmp(big.NewInt(999_990)))
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := NewInstance(t, "CPY", 100)
		require.NoError(t, s.Insert(ctx, in))

		got, err := s.Get(ctx, in.ID)
		require.NoError(t, err)
		got.Ledger.TotalSupply.SetInt64(1)
		in.Ledger.TotalSupply.SetInt64(2)

		again, err := s.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Ledger.TotalSupply.Cmp(big.NewInt(1_000_000)))
	})

	t.Run("ListOrderedByCreation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		late := NewInstance(t, "LATE", 300)
		early := NewInstance(t, "EARLY", 100)
		require.NoError(t, s.Insert(ctx, late))
		require.NoError(t, s.Insert(ctx, early))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "EARLY", list[0].Issuance.Symbol)
		assert.Equal(t, "LATE", list[1].Issuance.Symbol)
	})
}
