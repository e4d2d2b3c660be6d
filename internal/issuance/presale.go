package issuance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ValidatePresaleConfig checks caps, bounds, window and rate.
func ValidatePresaleConfig(c PresaleConfig) error {
	for _, f := range []struct {
		name string
		v    *big.Int
	}{
		{"soft cap", c.SoftCap},
		{"hard cap", c.HardCap},
		{"min contribution", c.MinContribution},
		{"max contribution", c.MaxContribution},
		{"rate", c.Rate},
	} {
		if err := checkPositive(f.name, f.v); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPresale, err)
		}
	}
	if c.SoftCap.Cmp(c.HardCap) > 0 {
		return fmt.Errorf("%w: soft cap %s above hard cap %s", ErrInvalidPresale, c.SoftCap, c.HardCap)
	}
	if c.MinContribution.Cmp(c.MaxContribution) > 0 {
		return fmt.Errorf("%w: min contribution %s above max %s", ErrInvalidPresale, c.MinContribution, c.MaxContribution)
	}
	if c.StartTime >= c.EndTime {
		return fmt.Errorf("%w: start %d not before end %d", ErrInvalidPresale, c.StartTime, c.EndTime)
	}
	if err := checkTimestamp("presale start", c.StartTime); err != nil {
		return err
	}
	if err := checkTimestamp("presale end", c.EndTime); err != nil {
		return err
	}
	if c.LiquidityLockDuration < 0 {
		return fmt.Errorf("%w: negative liquidity lock duration", ErrInvalidPresale)
	}
	if err := checkDuration("liquidity lock duration", c.LiquidityLockDuration); err != nil {
		return err
	}
	for _, a := range c.Whitelist {
		if a == (common.Address{}) {
			return fmt.Errorf("%w: whitelist entry", ErrZeroAddress)
		}
	}
	return nil
}

// NewPresale returns the runtime state for a validated config.
func NewPresale(c PresaleConfig) *Presale {
	p := &Presale{
		Config:           c.clone(),
		TotalContributed: new(big.Int),
		Escrow:           new(big.Int),
		Proceeds:         new(big.Int),
		Whitelist:        make(map[common.Address]bool, len(c.Whitelist)),
		Contributions:    make(map[common.Address]*Contribution),
	}
	for _, a := range c.Whitelist {
		p.Whitelist[a] = true
	}
	return p
}

// State derives the lifecycle state at now. Committed transitions win over
// the clock.
func (p *Presale) State(now int64) PresaleState {
	if p.Status != "" {
		return p.Status
	}
	switch {
	case now < p.Config.StartTime:
		return StateNotStarted
	case now >= p.Config.EndTime:
		return StateClosed
	default:
		return StateActive
	}
}

// Close commits Active -> Closed once the window has ended. Calling it again,
// or before the end, leaves the state as is.
func (p *Presale) Close(now int64) PresaleState {
	if p.Status == "" && now >= p.Config.EndTime {
		p.Status = StateClosed
	}
	return p.State(now)
}

// Contribute records amount from contributor. Checks run in order: window,
// whitelist, cumulative bounds, hard cap. Nothing is mutated on rejection.
func (p *Presale) Contribute(contributor common.Address, amount *big.Int, now int64) (*Contribution, error) {
	if contributor == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if err := checkPositive("contribution", amount); err != nil {
		return nil, err
	}

	if p.ClosedByCap {
		return nil, capReachedError{}
	}
	if st := p.State(now); st != StateActive {
		return nil, fmt.Errorf("%w: state %s at %d", ErrPresaleNotActive, st, now)
	}

	if p.Config.WhitelistEnabled && !p.Whitelist[contributor] {
		return nil, fmt.Errorf("%w: %s", ErrNotWhitelisted, contributor.Hex())
	}

	prev := new(big.Int)
	if c, ok := p.Contributions[contributor]; ok {
		prev.Set(c.Amount)
	}
	cumulative := new(big.Int).Add(prev, amount)
	if cumulative.Cmp(p.Config.MinContribution) < 0 {
		return nil, fmt.Errorf("%w: cumulative %s < %s", ErrBelowMinimum, cumulative, p.Config.MinContribution)
	}
	if cumulative.Cmp(p.Config.MaxContribution) > 0 {
		return nil, fmt.Errorf("%w: cumulative %s > %s", ErrAboveMaximum, cumulative, p.Config.MaxContribution)
	}

	total := new(big.Int).Add(p.TotalContributed, amount)
	if total.Cmp(p.Config.HardCap) > 0 {
		return nil, fmt.Errorf("%w: total %s + %s > %s", ErrHardCapExceeded, p.TotalContributed, amount, p.Config.HardCap)
	}

	c, ok := p.Contributions[contributor]
	if !ok {
		c = &Contribution{Contributor: contributor}
		p.Contributions[contributor] = c
		p.Contributors = append(p.Contributors, contributor)
	}
	c.Amount = cumulative
	c.TokensOwed = TokensForContribution(cumulative, p.Config.Rate)
	p.TotalContributed = total
	p.Escrow = new(big.Int).Add(p.Escrow, amount)

	if total.Cmp(p.Config.HardCap) == 0 {
		p.Status = StateClosed
		p.ClosedByCap = true
	}
	return c, nil
}

// TokensSold is the sum of TokensOwed over all contributions.
func (p *Presale) TokensSold() *big.Int {
	sum := new(big.Int)
	for _, c := range p.Contributions {
		sum.Add(sum, zeroIfNil(c.TokensOwed))
	}
	return sum
}

// AddToWhitelist adds addrs to the whitelist. Owner-only, until the sale
// closes.
func (in *Instance) AddToWhitelist(caller common.Address, addrs []common.Address, now int64) error {
	p, err := in.whitelistable(caller, now)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a == (common.Address{}) {
			return fmt.Errorf("%w: whitelist entry", ErrZeroAddress)
		}
	}
	for _, a := range addrs {
		p.Whitelist[a] = true
	}
	return nil
}

// RemoveFromWhitelist removes addrs. Existing contributions are kept.
func (in *Instance) RemoveFromWhitelist(caller common.Address, addrs []common.Address, now int64) error {
	p, err := in.whitelistable(caller, now)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		delete(p.Whitelist, a)
	}
	return nil
}

func (in *Instance) whitelistable(caller common.Address, now int64) (*Presale, error) {
	if in.Presale == nil {
		return nil, ErrNoPresale
	}
	if err := in.requireOwner(caller); err != nil {
		return nil, err
	}
	if st := in.Presale.State(now); st != StateNotStarted && st != StateActive {
		return nil, fmt.Errorf("%w: state %s", ErrPresaleClosed, st)
	}
	return in.Presale, nil
}

// Contribute forwards to the presale, reporting ErrNoPresale when there is
// none.
func (in *Instance) Contribute(contributor common.Address, amount *big.Int, now int64) (*Contribution, error) {
	if in.Presale == nil {
		return nil, ErrNoPresale
	}
	return in.Presale.Contribute(contributor, amount, now)
}

// ClosePresale applies Close(now).
func (in *Instance) ClosePresale(now int64) (PresaleState, error) {
	if in.Presale == nil {
		return "", ErrNoPresale
	}
	return in.Presale.Close(now), nil
}
