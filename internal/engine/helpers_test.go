package engine_test

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/getantonio/tokenhub/internal/engine"
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

func eth(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether)) }

// clock is a settable engine clock.
type clock struct {
	mu  sync.Mutex
	now int64
}

func newClock(now int64) *clock { return &clock{now: now} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *clock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// events collects published events.
type events struct {
	mu  sync.Mutex
	all []engine.Event
}

func (s *events) Publish(ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, ev)
}

func (s *events) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.all))
	for i, ev := range s.all {
		out[i] = ev.Type
	}
	return out
}

// request mints 1,000,000 tokens: 20% presale, 10% liquidity, 30% vesting
// team, 40% treasury. Caps 50/100 ETH, 1..60 ETH each, 1000 tokens/ETH.
func request() issuance.CreateRequest {
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
		Presale: &issuance.PresaleConfig{
			SoftCap:               eth(50),
			HardCap:               eth(100),
			MinContribution:       eth(1),
			MaxContribution:       eth(60),
			StartTime:             start,
			EndTime:               end,
			Rate:                  eth(1000),
			LiquidityLockDuration: 30 * day,
		},
	}
}
