// presale-sim: runs many issuances through a full presale lifecycle at once,
// each behind its own engine lock, then checks the accounting invariants of
// every one and prints a summary table.
//
// Run from the module root:
//
//	go run ./scripts/presale-sim
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/units"
)

// ── config ────────────────────────────────────────────────────────────────────

const (
	issuances    = 24
	contributors = 40
	seed         = 7

	saleStart = int64(1_767_225_600)
	day       = int64(24 * 60 * 60)
	lockDays  = 30
)

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	symbol     string
	state      string
	raised     string
	accepted   int
	rejected   int
	violations []string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	var now atomic.Int64
	now.Store(saleStart - day)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	payer := engine.NewRecordingPayer()
	eng := engine.New(
		engine.WithPayer(payer),
		engine.WithLogger(log),
		engine.WithClock(func() time.Time { return time.Unix(now.Load(), 0) }),
	)
	ctx := context.Background()
	owner := common.BigToAddress(big.NewInt(0xA11CE))

	ids := make([]issuance.ID, issuances)
	for i := range ids {
		id, err := eng.CreateIssuance(ctx, request(i, owner))
		if err != nil {
			fmt.Fprintln(os.Stderr, "create:", err)
			os.Exit(1)
		}
		ids[i] = id
	}

	// Sale window: every contributor hits every sale concurrently. Even sales
	// get large tickets and fill up; odd ones stay under the soft cap.
	now.Store(saleStart + day)
	results := make([]result, issuances)
	var wg sync.WaitGroup
	for i, id := range ids {
		for c := 1; c <= contributors; c++ {
			wg.Add(1)
			go func(i, c int, id issuance.ID) {
				defer wg.Done()
				rng := rand.New(rand.NewPCG(seed, uint64(i*contributors+c)))
				coins := 1 + rng.IntN(5)
				if i%2 == 1 {
					coins = 1
				}
				err := eng.Contribute(ctx, id, contributor(c), coinAmount(coins))
				record(&results[i], err)
			}(i, c, id)
		}
	}
	wg.Wait()

	// Settlement: finalize, claims, refunds and proceeds run concurrently.
	now.Store(saleStart + 31*day)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id issuance.ID) {
			defer wg.Done()
			settle(ctx, eng, id, owner, &results[i])
		}(i, id)
	}
	wg.Wait()

	// Past every unlock time: release the liquidity of successful sales.
	now.Store(saleStart + 32*day + lockDays*day)
	for i, id := range ids {
		if results[i].state != string(issuance.StateFinalized) {
			continue
		}
		wg.Add(1)
		go func(i int, id issuance.ID) {
			defer wg.Done()
			if _, err := eng.WithdrawLiquidity(ctx, id, owner); err != nil {
				results[i].violations = append(results[i].violations, "withdraw: "+err.Error())
			}
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		check(ctx, eng, payer, id, &results[i])
	}
	printTable(results)

	for _, r := range results {
		if len(r.violations) > 0 {
			os.Exit(1)
		}
	}
}

var recordMu sync.Mutex

func record(r *result, err error) {
	recordMu.Lock()
	defer recordMu.Unlock()
	if err == nil {
		r.accepted++
		return
	}
	if _, ok := issuance.KindOf(err); !ok {
		r.violations = append(r.violations, "unexpected error: "+err.Error())
	}
	r.rejected++
}

func settle(ctx context.Context, eng *engine.Engine, id issuance.ID, owner common.Address, r *result) {
	out, err := eng.FinalizePresale(ctx, id)
	if err != nil {
		r.violations = append(r.violations, "finalize: "+err.Error())
		return
	}
	r.state = string(out.State)
	r.raised = units.FormatUnits(out.TotalContributed, 18)

	for c := 1; c <= contributors; c++ {
		var err error
		if out.State == issuance.StateFinalized {
			_, err = eng.ClaimTokens(ctx, id, contributor(c))
		} else {
			_, err = eng.ClaimRefund(ctx, id, contributor(c))
		}
		if err != nil && !errors.Is(err, issuance.ErrNothingToClaim) {
			r.violations = append(r.violations, "claim: "+err.Error())
		}
	}
	if out.State != issuance.StateFinalized {
		return
	}
	if _, err := eng.ClaimProceeds(ctx, id, owner); err != nil {
		r.violations = append(r.violations, "proceeds: "+err.Error())
	}
}

// check verifies supply conservation and that every contributed coin left
// escrow exactly once.
func check(ctx context.Context, eng *engine.Engine, payer *engine.RecordingPayer, id issuance.ID, r *result) {
	in, err := eng.Get(ctx, id)
	if err != nil {
		r.violations = append(r.violations, err.Error())
		return
	}
	r.symbol = in.Issuance.Symbol

	if sum := in.Ledger.SumBalances(); sum.Cmp(in.Ledger.TotalSupply) != 0 {
		r.violations = append(r.violations, fmt.Sprintf("balances %s != supply %s", sum, in.Ledger.TotalSupply))
	}

	paid := new(big.Int)
	for _, p := range payer.Payments() {
		if p.IssuanceID == id {
			paid.Add(paid, p.Amount)
		}
	}
	held := in.Presale.Escrow
	if total := new(big.Int).Add(paid, held); total.Cmp(in.Presale.TotalContributed) != 0 {
		r.violations = append(r.violations, fmt.Sprintf("paid %s + escrow %s != raised %s", paid, held, in.Presale.TotalContributed))
	}
	if in.Presale.Status == issuance.StateFinalized && held.Sign() != 0 {
		r.violations = append(r.violations, "escrow not drained: "+held.String())
	}
}

// ── fixtures ──────────────────────────────────────────────────────────────────

func request(i int, owner common.Address) issuance.CreateRequest {
	return issuance.CreateRequest{
		Issuance: issuance.Issuance{
			Name:          fmt.Sprintf("Sim %d", i),
			Symbol:        fmt.Sprintf("SIM%02d", i),
			Decimals:      18,
			InitialSupply: units.MustParseUnits("1000000", 18),
			MaxSupply:     units.MustParseUnits("1000000", 18),
			Owner:         owner,
		},
		Allocations: []issuance.WalletAllocation{
			{Wallet: owner, Bps: 5_000},
			{Wallet: common.BigToAddress(big.NewInt(0x7EA)), Bps: 2_000, VestingEnabled: true, VestingDuration: 365 * day, CliffDuration: 90 * day},
		},
		PresaleBps:   2_000,
		LiquidityBps: 1_000,
		Presale: &issuance.PresaleConfig{
			SoftCap:               coinAmount(50),
			HardCap:               coinAmount(100),
			MinContribution:       coinAmount(1),
			MaxContribution:       coinAmount(5),
			StartTime:             saleStart,
			EndTime:               saleStart + 30*day,
			Rate:                  units.MustParseUnits("1000", 18),
			LiquidityLockDuration: lockDays * day,
		},
		Salt: fmt.Sprint(i),
	}
}

func contributor(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0xC0000 + n)))
}

func coinAmount(n int) *big.Int {
	return units.MustParseUnits(fmt.Sprint(n), 18)
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool { return results[i].symbol < results[j].symbol })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tSTATE\tRAISED\tOK\tREJECTED\tINVARIANTS")
	fmt.Fprintln(w, strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 8)+"\t"+
		strings.Repeat("-", 4)+"\t"+
		strings.Repeat("-", 8)+"\t"+
		strings.Repeat("-", 24))
	for _, r := range results {
		note := "ok"
		if len(r.violations) > 0 {
			note = strings.Join(r.violations, "; ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", r.symbol, r.state, r.raised, r.accepted, r.rejected, note)
	}
	w.Flush()
}
