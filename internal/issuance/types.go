package issuance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is 100% expressed in basis points. Every percentage in the
// engine is an integer number of basis points.
const BpsDenominator = 10_000

// Bounds on configured times. A timestamp and a duration inside them always
// sum without int64 overflow.
const (
	// MaxTimestamp is 9999-12-31T23:59:59Z.
	MaxTimestamp = int64(253_402_300_799)
	// MaxDuration is 100 years.
	MaxDuration = int64(100 * 365 * 24 * 60 * 60)
)

// ID identifies an Issuance: a 0x-prefixed keccak-256 hex string.
type ID string

func (id ID) String() string { return string(id) }

// Issuance is the immutable token definition.
type Issuance struct {
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	Decimals      uint8          `json:"decimals"`
	InitialSupply *big.Int       `json:"initial_supply"`
	MaxSupply     *big.Int       `json:"max_supply"`
	Owner         common.Address `json:"owner"`
}

// WalletAllocation assigns a share of the initial supply to one wallet.
// Durations are seconds; VestingStart of 0 means "at issuance creation".
type WalletAllocation struct {
	Wallet          common.Address `json:"wallet"`
	Bps             uint32         `json:"bps"`
	VestingEnabled  bool           `json:"vesting_enabled"`
	VestingDuration int64          `json:"vesting_duration"`
	CliffDuration   int64          `json:"cliff_duration"`
	VestingStart    int64          `json:"vesting_start"`
	Revocable       bool           `json:"revocable"`
}

// VestingSchedule is a linear-with-cliff grant held in the vesting vault.
type VestingSchedule struct {
	Beneficiary     common.Address `json:"beneficiary"`
	TotalAmount     *big.Int       `json:"total_amount"`
	StartTime       int64          `json:"start_time"`
	CliffDuration   int64          `json:"cliff_duration"`
	VestingDuration int64          `json:"vesting_duration"`
	ReleasedAmount  *big.Int       `json:"released_amount"`
	Revocable       bool           `json:"revocable"`
	Revoked         bool           `json:"revoked"`
}

// PresaleState is the lifecycle state of a presale.
type PresaleState string

const (
	StateNotStarted PresaleState = "NotStarted"
	StateActive     PresaleState = "Active"
	StateClosed     PresaleState = "Closed"
	StateFinalized  PresaleState = "Finalized"
	StateRefunding  PresaleState = "Refunding"
)

// Terminal reports whether no further presale transition is possible.
func (s PresaleState) Terminal() bool {
	return s == StateFinalized || s == StateRefunding
}

// PresaleConfig is the creation-time presale definition. Rate is the number
// of token base units sold per whole native coin (1e18 wei).
type PresaleConfig struct {
	SoftCap               *big.Int         `json:"soft_cap"`
	HardCap               *big.Int         `json:"hard_cap"`
	MinContribution       *big.Int         `json:"min_contribution"`
	MaxContribution       *big.Int         `json:"max_contribution"`
	StartTime             int64            `json:"start_time"`
	EndTime               int64            `json:"end_time"`
	Rate                  *big.Int         `json:"rate"`
	WhitelistEnabled      bool             `json:"whitelist_enabled"`
	Whitelist             []common.Address `json:"whitelist,omitempty"`
	LiquidityLockDuration int64            `json:"liquidity_lock_duration"`
}

// Contribution is the accumulated position of one contributor.
type Contribution struct {
	Contributor common.Address `json:"contributor"`
	Amount      *big.Int       `json:"amount"`
	TokensOwed  *big.Int       `json:"tokens_owed"`
	Claimed     bool           `json:"claimed"`
	Refunded    bool           `json:"refunded"`
}

// Presale is the runtime state of a sale. Status holds only committed
// transitions; an empty Status means the sale has not been closed yet.
type Presale struct {
	Config           PresaleConfig                    `json:"config"`
	Status           PresaleState                     `json:"status,omitempty"`
	ClosedByCap      bool                             `json:"closed_by_cap"`
	Finalized        bool                             `json:"finalized"`
	TotalContributed *big.Int                         `json:"total_contributed"`
	Escrow           *big.Int                         `json:"escrow"`
	Proceeds         *big.Int                         `json:"proceeds"`
	Whitelist        map[common.Address]bool          `json:"whitelist"`
	Contributions    map[common.Address]*Contribution `json:"contributions"`
	Contributors     []common.Address                 `json:"contributors"`
}

// LiquidityLock custodies the liquidity reserve until UnlockTime.
type LiquidityLock struct {
	TokenAmount  *big.Int       `json:"token_amount"`
	NativeAmount *big.Int       `json:"native_amount"`
	UnlockTime   int64          `json:"unlock_time"`
	Locked       bool           `json:"locked"`
	Owner        common.Address `json:"owner"`
}

// FinalizeOutcome reports which branch a finalize call took.
type FinalizeOutcome struct {
	State              PresaleState `json:"state"`
	TotalContributed   *big.Int     `json:"total_contributed"`
	TokensSold         *big.Int     `json:"tokens_sold"`
	UnsoldTokens       *big.Int     `json:"unsold_tokens"`
	LiquidityTokens    *big.Int     `json:"liquidity_tokens"`
	LiquidityNative    *big.Int     `json:"liquidity_native"`
	Proceeds           *big.Int     `json:"proceeds"`
	LiquidityUnlocksAt int64        `json:"liquidity_unlocks_at,omitempty"`
}

// Instance is the persisted record of one Issuance: the token definition
// plus its ledger, vesting, presale, contribution and liquidity tables.
type Instance struct {
	ID           ID                                  `json:"id"`
	Version      uint64                              `json:"version"`
	CreatedAt    int64                               `json:"created_at"`
	UpdatedAt    int64                               `json:"updated_at"`
	Issuance     Issuance                            `json:"issuance"`
	Allocations  []WalletAllocation                  `json:"allocations"`
	PresaleBps   uint32                              `json:"presale_bps"`
	LiquidityBps uint32                              `json:"liquidity_bps"`
	Ledger       *Ledger                             `json:"ledger"`
	Vesting      map[common.Address]*VestingSchedule `json:"vesting"`
	Presale      *Presale                            `json:"presale,omitempty"`
	Liquidity    *LiquidityLock                      `json:"liquidity,omitempty"`
}

// --- cloning ---

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// zeroIfNil returns x, or a fresh zero when x is nil.
func zeroIfNil(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

// Clone returns a deep copy of the instance.
func (in *Instance) Clone() *Instance {
	if in == nil {
		return nil
	}
	out := *in
	out.Issuance = in.Issuance.clone()
	out.Allocations = append([]WalletAllocation(nil), in.Allocations...)
	out.Ledger = in.Ledger.Clone()
	if in.Vesting != nil {
		out.Vesting = make(map[common.Address]*VestingSchedule, len(in.Vesting))
		for k, v := range in.Vesting {
			out.Vesting[k] = v.clone()
		}
	}
	out.Presale = in.Presale.clone()
	if in.Liquidity != nil {
		l := *in.Liquidity
		l.TokenAmount = cloneBig(in.Liquidity.TokenAmount)
		l.NativeAmount = cloneBig(in.Liquidity.NativeAmount)
		out.Liquidity = &l
	}
	return &out
}

func (i Issuance) clone() Issuance {
	i.InitialSupply = cloneBig(i.InitialSupply)
	i.MaxSupply = cloneBig(i.MaxSupply)
	return i
}

func (v *VestingSchedule) clone() *VestingSchedule {
	out := *v
	out.TotalAmount = cloneBig(v.TotalAmount)
	out.ReleasedAmount = cloneBig(v.ReleasedAmount)
	return &out
}

func (c PresaleConfig) clone() PresaleConfig {
	c.SoftCap = cloneBig(c.SoftCap)
	c.HardCap = cloneBig(c.HardCap)
	c.MinContribution = cloneBig(c.MinContribution)
	c.MaxContribution = cloneBig(c.MaxContribution)
	c.Rate = cloneBig(c.Rate)
	c.Whitelist = append([]common.Address(nil), c.Whitelist...)
	return c
}

func (p *Presale) clone() *Presale {
	if p == nil {
		return nil
	}
	out := *p
	out.Config = p.Config.clone()
	out.TotalContributed = cloneBig(p.TotalContributed)
	out.Escrow = cloneBig(p.Escrow)
	out.Proceeds = cloneBig(p.Proceeds)
	out.Whitelist = make(map[common.Address]bool, len(p.Whitelist))
	for k, v := range p.Whitelist {
		out.Whitelist[k] = v
	}
	out.Contributions = make(map[common.Address]*Contribution, len(p.Contributions))
	for k, c := range p.Contributions {
		cc := *c
		cc.Amount = cloneBig(c.Amount)
		cc.TokensOwed = cloneBig(c.TokensOwed)
		out.Contributions[k] = &cc
	}
	out.Contributors = append([]common.Address(nil), p.Contributors...)
	return &out
}
