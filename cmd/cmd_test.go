package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/config"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/units"
	"github.com/getantonio/tokenhub/internal/wallet"
)

const (
	saleStart = int64(1_767_225_600)
	day       = int64(24 * 60 * 60)
)

// useConfig points the package globals at a fresh config dir.
func useConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load(t.TempDir())
	require.NoError(t, err)
	prevCfg, prevFrom, prevAt := cfg, fromFlag, atFlag
	cfg = c
	t.Cleanup(func() { cfg, fromFlag, atFlag = prevCfg, prevFrom, prevAt })
}

func writeDefinition(t *testing.T, owner common.Address, withPresale bool) string {
	t.Helper()
	def := fmt.Sprintf(`{
  "name": "Alpha", "symbol": "ALPHA", "decimals": 18,
  "initial_supply": "1000000", "max_supply": "2000000",
  "allocations": [{"wallet": %q, "share": "100"}]
}`, owner.Hex())
	if withPresale {
		def = fmt.Sprintf(`{
  "name": "Alpha", "symbol": "ALPHA", "decimals": 18,
  "initial_supply": "1000000", "max_supply": "2000000",
  "presale_share": "20", "liquidity_share": "10",
  "allocations": [{"wallet": %q, "share": "70"}],
  "presale": {
    "soft_cap": "50", "hard_cap": "100",
    "min_contribution": "1", "max_contribution": "60",
    "start_time": %d, "end_time": %d, "rate": "1000"
  }
}`, owner.Hex(), saleStart, saleStart+30*day)
	}
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(def), 0o600))
	return path
}

// ---------------------------------------------------------------------------
// definitions
// ---------------------------------------------------------------------------

func TestReadCreateBodyAppliesConfigDefaults(t *testing.T) {
	useConfig(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	body, err := readCreateBody(writeDefinition(t, owner, true))
	require.NoError(t, err)
	assert.Equal(t, config.UnitPercent, body.PercentUnit)
	assert.Equal(t, int64(30)*day, body.Presale.LockDuration)

	body.Caller = owner
	req, err := body.CreateRequest()
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), req.PresaleBps)
	assert.Equal(t, uint32(7000), req.Allocations[0].Bps)
}

func TestReadCreateBodyErrors(t *testing.T) {
	useConfig(t)

	_, err := readCreateBody("")
	assert.ErrorContains(t, err, "--file is required")

	_, err = readCreateBody(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "reading definition")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = readCreateBody(bad)
	assert.ErrorContains(t, err, "parsing definition")
}

// ---------------------------------------------------------------------------
// wallets
// ---------------------------------------------------------------------------

func TestActingWallet(t *testing.T) {
	useConfig(t)
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	_, err := actingWallet(mgr)
	assert.ErrorContains(t, err, "no wallet selected")

	owner, err := mgr.Generate("owner")
	require.NoError(t, err)
	watcher, err := mgr.Add("watcher", common.HexToAddress("0x00000000000000000000000000000000000000bb"))
	require.NoError(t, err)

	require.NoError(t, mgr.SetDefault("owner"))
	w, err := actingWallet(mgr)
	require.NoError(t, err)
	assert.Equal(t, owner.Address, w.Address)

	fromFlag = owner.Address.Hex()
	w, err = actingWallet(mgr)
	require.NoError(t, err)
	assert.Equal(t, "owner", w.Name)

	fromFlag = "watcher"
	_, err = actingWallet(mgr)
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)

	fromFlag = "0x00000000000000000000000000000000000000cc"
	_, err = actingWallet(mgr)
	assert.ErrorContains(t, err, "not a wallet in this keystore")

	fromFlag = ""
	cfg.DefaultWallet = watcher.Name
	_, err = actingWallet(mgr)
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)
}

// ---------------------------------------------------------------------------
// engine wiring
// ---------------------------------------------------------------------------

func TestOpenEngineUsesJSONStoreAndJournal(t *testing.T) {
	useConfig(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ctx := context.Background()

	body, err := readCreateBody(writeDefinition(t, owner, false))
	require.NoError(t, err)
	body.Caller = owner
	req, err := body.CreateRequest()
	require.NoError(t, err)

	eng, done, err := openEngine(ctx)
	require.NoError(t, err)
	id, err := eng.CreateIssuance(ctx, req)
	require.NoError(t, err)
	done()

	assert.FileExists(t, cfg.IssuancesPath())

	reopened, done, err := openEngine(ctx)
	require.NoError(t, err)
	defer done()
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestSaleEntriesAndRefundJournal(t *testing.T) {
	useConfig(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	buyer := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	ctx := context.Background()

	body, err := readCreateBody(writeDefinition(t, owner, true))
	require.NoError(t, err)
	body.Caller = owner
	req, err := body.CreateRequest()
	require.NoError(t, err)

	atFlag = saleStart - day
	eng, done, err := openEngine(ctx)
	require.NoError(t, err)
	id, err := eng.CreateIssuance(ctx, req)
	require.NoError(t, err)
	done()

	atFlag = saleStart + day
	eng, done, err = openEngine(ctx)
	require.NoError(t, err)
	require.NoError(t, eng.Contribute(ctx, id, buyer, mustCoins(t, "25")))

	entries, err := saleEntries(ctx, eng)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ALPHA", entries[0].Symbol)
	assert.Equal(t, string(issuance.StateActive), entries[0].State)
	assert.Equal(t, "25", entries[0].Raised)
	assert.Equal(t, "100", entries[0].HardCap)
	assert.InDelta(t, 0.25, entries[0].Progress, 1e-9)
	assert.Equal(t, 1, entries[0].Contributors)
	assert.Equal(t, 29*24*time.Hour, entries[0].EndsIn)
	done()

	// Below the soft cap: the sale ends in refunds, paid through the journal.
	atFlag = saleStart + 31*day
	eng, done, err = openEngine(ctx)
	require.NoError(t, err)
	defer done()
	out, err := eng.FinalizePresale(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, issuance.StateRefunding, out.State)
	refund, err := eng.ClaimRefund(ctx, id, buyer)
	require.NoError(t, err)

	paid, err := engine.ReadJournal(filepath.Join(cfg.Dir(), payoutsFile))
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, buyer, paid[0].To)
	assert.Equal(t, refund, paid[0].Amount)
}

func mustCoins(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseUnits(s, api.NativeDecimals)
	require.NoError(t, err)
	return v
}

// ---------------------------------------------------------------------------
// formatting
// ---------------------------------------------------------------------------

func TestDescribeError(t *testing.T) {
	err := fmt.Errorf("%w: 3 > 2", issuance.ErrAllocationSum)
	assert.Equal(t, "ConfigurationError (AllocationSum): allocation percentages must sum to 10000 bps: 3 > 2", describeError(err))
	assert.Equal(t, "plain", describeError(fmt.Errorf("plain")))
}

func TestClockHonoursAt(t *testing.T) {
	useConfig(t)
	atFlag = 0
	assert.WithinDuration(t, time.Now(), clock()(), time.Minute)

	atFlag = saleStart
	assert.Equal(t, saleStart, clock()().Unix())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0", formatDuration(0))
	assert.Equal(t, "30d", formatDuration(30*day))
	assert.Equal(t, "1h30m0s", formatDuration(5400))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(0))
	assert.Equal(t, "2026-01-01 00:00 UTC", formatTime(saleStart))
}

func TestRaisedFraction(t *testing.T) {
	p := &issuance.Presale{
		Config:           issuance.PresaleConfig{HardCap: mustCoins(t, "100")},
		TotalContributed: mustCoins(t, "40"),
	}
	assert.InDelta(t, 0.4, raisedFraction(p), 1e-12)

	p.Config.HardCap = nil
	assert.Zero(t, raisedFraction(p))
}
