package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/units"
)

// Signed is implemented by every request body that carries a caller.
type Signed interface {
	Signer() common.Address
	Expiry() int64
}

// Envelope carries the caller and the signature deadline.
type Envelope struct {
	Caller   common.Address `json:"caller"`
	Deadline int64          `json:"deadline"`
}

func (e Envelope) Signer() common.Address { return e.Caller }
func (e Envelope) Expiry() int64          { return e.Deadline }

// Intent is the body of every mutating call on an existing issuance. Fields
// unused by an operation must be left empty.
type Intent struct {
	Envelope
	To          *common.Address  `json:"to,omitempty"`
	Beneficiary *common.Address  `json:"beneficiary,omitempty"`
	Amount      string           `json:"amount,omitempty"`
	Add         []common.Address `json:"add,omitempty"`
	Remove      []common.Address `json:"remove,omitempty"`
}

// CreateBody is the body of POST /v1/issuances. Supplies and presale figures
// are decimal strings; shares are read in PercentUnit (bps by default).
type CreateBody struct {
	Envelope
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Decimals       uint8            `json:"decimals"`
	InitialSupply  string           `json:"initial_supply"`
	MaxSupply      string           `json:"max_supply"`
	PercentUnit    string           `json:"percent_unit,omitempty"`
	PresaleShare   string           `json:"presale_share,omitempty"`
	LiquidityShare string           `json:"liquidity_share,omitempty"`
	Allocations    []AllocationBody `json:"allocations"`
	Presale        *PresaleBody     `json:"presale,omitempty"`
}

// AllocationBody is one wallet allocation. Durations are seconds.
type AllocationBody struct {
	Wallet    common.Address `json:"wallet"`
	Share     string         `json:"share"`
	Vesting   bool           `json:"vesting,omitempty"`
	Duration  int64          `json:"duration,omitempty"`
	Cliff     int64          `json:"cliff,omitempty"`
	Start     int64          `json:"start,omitempty"`
	Revocable bool           `json:"revocable,omitempty"`
}

// PresaleBody configures a sale. Caps and contributions are native coin
// amounts; Rate is whole tokens per whole coin.
type PresaleBody struct {
	SoftCap          string           `json:"soft_cap"`
	HardCap          string           `json:"hard_cap"`
	MinContribution  string           `json:"min_contribution"`
	MaxContribution  string           `json:"max_contribution"`
	StartTime        int64            `json:"start_time"`
	EndTime          int64            `json:"end_time"`
	Rate             string           `json:"rate"`
	WhitelistEnabled bool             `json:"whitelist_enabled,omitempty"`
	Whitelist        []common.Address `json:"whitelist,omitempty"`
	LockDuration     int64            `json:"liquidity_lock_duration"`
}

// CreateRequest converts the body into an engine request owned by Caller.
func (b CreateBody) CreateRequest() (issuance.CreateRequest, error) {
	unit := b.PercentUnit
	if unit == "" {
		unit = units.UnitBps
	}
	req := issuance.CreateRequest{
		Issuance: issuance.Issuance{
			Name:     b.Name,
			Symbol:   b.Symbol,
			Decimals: b.Decimals,
			Owner:    b.Caller,
		},
	}

	var err error
	if req.Issuance.InitialSupply, err = parseAmount("initial_supply", b.InitialSupply, b.Decimals); err != nil {
		return req, err
	}
	if req.Issuance.MaxSupply, err = parseAmount("max_supply", b.MaxSupply, b.Decimals); err != nil {
		return req, err
	}
	if req.PresaleBps, err = parseShare("presale_share", b.PresaleShare, unit); err != nil {
		return req, err
	}
	if req.LiquidityBps, err = parseShare("liquidity_share", b.LiquidityShare, unit); err != nil {
		return req, err
	}

	for i, a := range b.Allocations {
		bps, err := parseShare(fmt.Sprintf("allocations[%d].share", i), a.Share, unit)
		if err != nil {
			return req, err
		}
		req.Allocations = append(req.Allocations, issuance.WalletAllocation{
			Wallet:          a.Wallet,
			Bps:             bps,
			VestingEnabled:  a.Vesting,
			VestingDuration: a.Duration,
			CliffDuration:   a.Cliff,
			VestingStart:    a.Start,
			Revocable:       a.Revocable,
		})
	}

	if p := b.Presale; p != nil {
		cfg := &issuance.PresaleConfig{
			StartTime:             p.StartTime,
			EndTime:               p.EndTime,
			WhitelistEnabled:      p.WhitelistEnabled,
			Whitelist:             p.Whitelist,
			LiquidityLockDuration: p.LockDuration,
		}
		for _, f := range []struct {
			name string
			in   string
			dec  uint8
			out  **big.Int
		}{
			{"soft_cap", p.SoftCap, NativeDecimals, &cfg.SoftCap},
			{"hard_cap", p.HardCap, NativeDecimals, &cfg.HardCap},
			{"min_contribution", p.MinContribution, NativeDecimals, &cfg.MinContribution},
			{"max_contribution", p.MaxContribution, NativeDecimals, &cfg.MaxContribution},
			{"rate", p.Rate, b.Decimals, &cfg.Rate},
		} {
			if *f.out, err = parseAmount("presale."+f.name, f.in, f.dec); err != nil {
				return req, err
			}
		}
		req.Presale = cfg
	}
	return req, nil
}

// requestError is a malformed body, reported as 400 before reaching the engine.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func parseAmount(field, s string, decimals uint8) (*big.Int, error) {
	if s == "" {
		return nil, badRequest("%s is required", field)
	}
	v, err := units.ParseUnits(s, decimals)
	if err != nil {
		return nil, badRequest("%s: %v", field, err)
	}
	return v, nil
}

func parseShare(field, s, unit string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := units.ParseShare(s, unit)
	if err != nil {
		return 0, badRequest("%s: %v", field, err)
	}
	return v, nil
}
