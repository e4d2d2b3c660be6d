package api

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/units"
)

// NativeDecimals is the precision of contribution amounts.
const NativeDecimals = 18

// IssuanceView is the wire and CLI rendering of an Instance. Token amounts
// are decimal strings at the token's decimals, native amounts at 18.
type IssuanceView struct {
	ID          string           `json:"id"`
	Version     uint64           `json:"version"`
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol"`
	Decimals    uint8            `json:"decimals"`
	Owner       common.Address   `json:"owner"`
	TotalSupply string           `json:"total_supply"`
	MaxSupply   string           `json:"max_supply"`
	Status      string           `json:"status"`
	CreatedAt   int64            `json:"created_at"`
	Allocations []AllocationView `json:"allocations"`
	Vesting     []VestingView    `json:"vesting,omitempty"`
	Presale     *PresaleView     `json:"presale,omitempty"`
	Liquidity   *LockView        `json:"liquidity,omitempty"`
}

// AllocationView is one row of the allocation table.
type AllocationView struct {
	Wallet  common.Address `json:"wallet"`
	Share   string         `json:"share"`
	Vesting bool           `json:"vesting"`
}

// VestingView is one vesting schedule at a point in time.
type VestingView struct {
	Beneficiary common.Address `json:"beneficiary"`
	Total       string         `json:"total"`
	Released    string         `json:"released"`
	Releasable  string         `json:"releasable"`
	Start       int64          `json:"start"`
	Cliff       int64          `json:"cliff"`
	Duration    int64          `json:"duration"`
	Revocable   bool           `json:"revocable"`
	Revoked     bool           `json:"revoked"`
}

// PresaleView summarizes a sale.
type PresaleView struct {
	State            issuance.PresaleState `json:"state"`
	SoftCap          string                `json:"soft_cap"`
	HardCap          string                `json:"hard_cap"`
	TotalContributed string                `json:"total_contributed"`
	TokensSold       string                `json:"tokens_sold"`
	Rate             string                `json:"rate"`
	StartTime        int64                 `json:"start_time"`
	EndTime          int64                 `json:"end_time"`
	Contributors     int                   `json:"contributors"`
	ClosedByCap      bool                  `json:"closed_by_cap"`
	Whitelist        bool                  `json:"whitelist"`
}

// LockView describes the liquidity lock.
type LockView struct {
	TokenAmount  string         `json:"token_amount"`
	NativeAmount string         `json:"native_amount"`
	UnlockTime   int64          `json:"unlock_time"`
	Locked       bool           `json:"locked"`
	Owner        common.Address `json:"owner"`
}

// OutcomeView renders a FinalizeOutcome.
type OutcomeView struct {
	State              issuance.PresaleState `json:"state"`
	TotalContributed   string                `json:"total_contributed"`
	TokensSold         string                `json:"tokens_sold"`
	UnsoldTokens       string                `json:"unsold_tokens"`
	LiquidityTokens    string                `json:"liquidity_tokens"`
	LiquidityNative    string                `json:"liquidity_native"`
	Proceeds           string                `json:"proceeds"`
	LiquidityUnlocksAt int64                 `json:"liquidity_unlocks_at,omitempty"`
}

// NewIssuanceView renders in as of now.
func NewIssuanceView(in *issuance.Instance, now int64) IssuanceView {
	dec := in.Issuance.Decimals
	v := IssuanceView{
		ID:          in.ID.String(),
		Version:     in.Version,
		Name:        in.Issuance.Name,
		Symbol:      in.Issuance.Symbol,
		Decimals:    dec,
		Owner:       in.Issuance.Owner,
		TotalSupply: units.FormatUnits(in.Ledger.TotalSupply, dec),
		MaxSupply:   units.FormatUnits(in.Issuance.MaxSupply, dec),
		Status:      in.Status(now),
		CreatedAt:   in.CreatedAt,
	}
	for _, a := range in.Allocations {
		v.Allocations = append(v.Allocations, AllocationView{
			Wallet:  a.Wallet,
			Share:   units.FormatShare(a.Bps),
			Vesting: a.VestingEnabled,
		})
	}
	for _, s := range in.Vesting {
		v.Vesting = append(v.Vesting, NewVestingView(s, dec, now))
	}
	sort.Slice(v.Vesting, func(i, j int) bool {
		return v.Vesting[i].Beneficiary.Cmp(v.Vesting[j].Beneficiary) < 0
	})
	if p := in.Presale; p != nil {
		v.Presale = &PresaleView{
			State:            p.State(now),
			SoftCap:          units.FormatUnits(p.Config.SoftCap, NativeDecimals),
			HardCap:          units.FormatUnits(p.Config.HardCap, NativeDecimals),
			TotalContributed: units.FormatUnits(p.TotalContributed, NativeDecimals),
			TokensSold:       units.FormatUnits(p.TokensSold(), dec),
			Rate:             units.FormatUnits(p.Config.Rate, dec),
			StartTime:        p.Config.StartTime,
			EndTime:          p.Config.EndTime,
			Contributors:     len(p.Contributors),
			ClosedByCap:      p.ClosedByCap,
			Whitelist:        p.Config.WhitelistEnabled,
		}
	}
	if l := in.Liquidity; l != nil {
		v.Liquidity = &LockView{
			TokenAmount:  units.FormatUnits(l.TokenAmount, dec),
			NativeAmount: units.FormatUnits(l.NativeAmount, NativeDecimals),
			UnlockTime:   l.UnlockTime,
			Locked:       l.Locked,
			Owner:        l.Owner,
		}
	}
	return v
}

// NewVestingView renders one schedule.
func NewVestingView(s *issuance.VestingSchedule, decimals uint8, now int64) VestingView {
	return VestingView{
		Beneficiary: s.Beneficiary,
		Total:       units.FormatUnits(s.TotalAmount, decimals),
		Released:    units.FormatUnits(s.ReleasedAmount, decimals),
		Releasable:  units.FormatUnits(s.Releasable(now), decimals),
		Start:       s.StartTime,
		Cliff:       s.CliffDuration,
		Duration:    s.VestingDuration,
		Revocable:   s.Revocable,
		Revoked:     s.Revoked,
	}
}

// NewOutcomeView renders a finalize result.
func NewOutcomeView(o issuance.FinalizeOutcome, decimals uint8) OutcomeView {
	return OutcomeView{
		State:              o.State,
		TotalContributed:   units.FormatUnits(o.TotalContributed, NativeDecimals),
		TokensSold:         units.FormatUnits(o.TokensSold, decimals),
		UnsoldTokens:       units.FormatUnits(o.UnsoldTokens, decimals),
		LiquidityTokens:    units.FormatUnits(o.LiquidityTokens, decimals),
		LiquidityNative:    units.FormatUnits(o.LiquidityNative, NativeDecimals),
		Proceeds:           units.FormatUnits(o.Proceeds, NativeDecimals),
		LiquidityUnlocksAt: o.LiquidityUnlocksAt,
	}
}

func amountView(x *big.Int, decimals uint8) map[string]string {
	return map[string]string{"amount": units.FormatUnits(x, decimals)}
}
