package engine

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/getantonio/tokenhub/internal/issuance"
)

// CreateIssuance validates req, mints the initial supply and persists the new
// instance. Nothing is stored if any check fails.
func (e *Engine) CreateIssuance(ctx context.Context, req issuance.CreateRequest) (issuance.ID, error) {
	if req.Salt == "" {
		req.Salt = uuid.NewString()
	}
	in, err := issuance.New(req, e.Now())
	if err != nil {
		e.metrics.RecordOperation("create", 0, err)
		return "", err
	}
	if err := e.store.Insert(ctx, in); err != nil {
		e.metrics.RecordOperation("create", 0, err)
		return "", fmt.Errorf("storing issuance: %w", err)
	}

	e.mu.Lock()
	e.entries[in.ID] = &entry{inst: in.Clone()}
	loaded := len(e.entries)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordOperation("create", 0, nil)
		e.metrics.IssuancesCreated.Inc()
		e.metrics.IssuancesLoaded.Set(float64(loaded))
	}
	e.log.WithFields(logrus.Fields{
		"issuance": in.ID,
		"symbol":   in.Issuance.Symbol,
		"supply":   in.Issuance.InitialSupply.String(),
		"presale":  in.Presale != nil,
	}).Info("issuance created")
	e.emit(in, EventIssuanceCreated, map[string]string{
		"symbol": in.Issuance.Symbol,
		"owner":  in.Issuance.Owner.Hex(),
		"supply": in.Issuance.InitialSupply.String(),
	})
	return in.ID, nil
}

// Get returns a copy of the issuance.
func (e *Engine) Get(ctx context.Context, id issuance.ID) (*issuance.Instance, error) {
	var out *issuance.Instance
	err := e.view(ctx, id, func(in *issuance.Instance) error {
		out = in
		return nil
	})
	return out, err
}

// List returns every stored issuance ordered by creation.
func (e *Engine) List(ctx context.Context) ([]*issuance.Instance, error) {
	return e.store.List(ctx)
}

// BalanceOf returns holder's token balance.
func (e *Engine) BalanceOf(ctx context.Context, id issuance.ID, holder common.Address) (*big.Int, error) {
	var out *big.Int
	err := e.view(ctx, id, func(in *issuance.Instance) error {
		out = in.Ledger.BalanceOf(holder)
		return nil
	})
	return out, err
}

// PresaleState returns the presale state at the engine clock.
func (e *Engine) PresaleState(ctx context.Context, id issuance.ID) (issuance.PresaleState, error) {
	var out issuance.PresaleState
	err := e.view(ctx, id, func(in *issuance.Instance) error {
		st, err := in.PresaleState(e.Now())
		out = st
		return err
	})
	return out, err
}

// ReleasableVested returns what beneficiary could claim at now.
func (e *Engine) ReleasableVested(ctx context.Context, id issuance.ID, beneficiary common.Address, now int64) (*big.Int, error) {
	var out *big.Int
	err := e.view(ctx, id, func(in *issuance.Instance) error {
		r, err := in.ReleasableVested(beneficiary, now)
		out = r
		return err
	})
	return out, err
}

// ---------------------------------------------------------------------------
// token
// ---------------------------------------------------------------------------

// Mint creates new tokens. Owner-only.
func (e *Engine) Mint(ctx context.Context, id issuance.ID, caller, to common.Address, amount *big.Int) error {
	in, err := e.mutate(ctx, id, "mint", func(in *issuance.Instance, _ int64) error {
		return in.Mint(caller, to, amount)
	})
	if err != nil {
		return err
	}
	e.emit(in, EventMinted, map[string]string{"to": to.Hex(), "amount": amount.String()})
	return nil
}

// Transfer moves tokens between holders.
func (e *Engine) Transfer(ctx context.Context, id issuance.ID, from, to common.Address, amount *big.Int) error {
	in, err := e.mutate(ctx, id, "transfer", func(in *issuance.Instance, _ int64) error {
		return in.Transfer(from, to, amount)
	})
	if err != nil {
		return err
	}
	e.emit(in, EventTransferred, map[string]string{"from": from.Hex(), "to": to.Hex(), "amount": amount.String()})
	return nil
}

// Burn destroys holder's tokens.
func (e *Engine) Burn(ctx context.Context, id issuance.ID, holder common.Address, amount *big.Int) error {
	in, err := e.mutate(ctx, id, "burn", func(in *issuance.Instance, _ int64) error {
		return in.Burn(holder, amount)
	})
	if err != nil {
		return err
	}
	e.emit(in, EventBurned, map[string]string{"from": holder.Hex(), "amount": amount.String()})
	return nil
}

// ---------------------------------------------------------------------------
// presale
// ---------------------------------------------------------------------------

// Contribute records a native-currency contribution. The value is held in
// presale escrow until claimed back as a refund or released as proceeds.
func (e *Engine) Contribute(ctx context.Context, id issuance.ID, contributor common.Address, amount *big.Int) error {
	var c issuance.Contribution
	var closed bool
	in, err := e.mutate(ctx, id, "contribute", func(in *issuance.Instance, now int64) error {
		got, err := in.Contribute(contributor, amount, now)
		if err != nil {
			return err
		}
		c = *got
		closed = in.Presale.ClosedByCap
		return nil
	})
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.Contributions.Inc()
	}
	e.emit(in, EventContributed, map[string]string{
		"contributor": contributor.Hex(),
		"amount":      amount.String(),
		"cumulative":  c.Amount.String(),
		"tokens_owed": c.TokensOwed.String(),
	})
	if closed {
		e.emit(in, EventPresaleClosed, map[string]string{"reason": "hard_cap"})
	}
	return nil
}

// ClosePresale applies the end-of-window transition and returns the state.
func (e *Engine) ClosePresale(ctx context.Context, id issuance.ID) (issuance.PresaleState, error) {
	var before, after issuance.PresaleState
	in, err := e.mutate(ctx, id, "close", func(in *issuance.Instance, now int64) error {
		if in.Presale == nil {
			return issuance.ErrNoPresale
		}
		before = in.Presale.Status
		st, err := in.ClosePresale(now)
		after = st
		return err
	})
	if err != nil {
		return "", err
	}
	if before == "" && in.Presale.Status == issuance.StateClosed {
		e.emit(in, EventPresaleClosed, map[string]string{"reason": "window_ended"})
	}
	return after, nil
}

// FinalizePresale settles a closed presale exactly once.
func (e *Engine) FinalizePresale(ctx context.Context, id issuance.ID) (issuance.FinalizeOutcome, error) {
	var out issuance.FinalizeOutcome
	in, err := e.mutate(ctx, id, "finalize", func(in *issuance.Instance, now int64) error {
		o, err := in.Finalize(now)
		out = o
		return err
	})
	if err != nil {
		return issuance.FinalizeOutcome{}, err
	}

	e.metrics.RecordFinalization(strings.ToLower(string(out.State)))
	typ := EventPresaleFinalized
	if out.State == issuance.StateRefunding {
		typ = EventPresaleRefunding
	}
	e.emit(in, typ, map[string]string{
		"total_contributed": out.TotalContributed.String(),
		"tokens_sold":       out.TokensSold.String(),
		"liquidity_tokens":  out.LiquidityTokens.String(),
		"liquidity_native":  out.LiquidityNative.String(),
		"proceeds":          out.Proceeds.String(),
		"unlocks_at":        strconv.FormatInt(out.LiquidityUnlocksAt, 10),
	})
	return out, nil
}

// AddToWhitelist adds addresses to the presale whitelist. Owner-only.
func (e *Engine) AddToWhitelist(ctx context.Context, id issuance.ID, caller common.Address, addrs []common.Address) error {
	in, err := e.mutate(ctx, id, "whitelist_add", func(in *issuance.Instance, now int64) error {
		return in.AddToWhitelist(caller, addrs, now)
	})
	if err != nil {
		return err
	}
	e.emit(in, EventWhitelistChanged, map[string]string{"added": joinAddrs(addrs)})
	return nil
}

// RemoveFromWhitelist removes addresses from the presale whitelist. Owner-only.
func (e *Engine) RemoveFromWhitelist(ctx context.Context, id issuance.ID, caller common.Address, addrs []common.Address) error {
	in, err := e.mutate(ctx, id, "whitelist_remove", func(in *issuance.Instance, now int64) error {
		return in.RemoveFromWhitelist(caller, addrs, now)
	})
	if err != nil {
		return err
	}
	e.emit(in, EventWhitelistChanged, map[string]string{"removed": joinAddrs(addrs)})
	return nil
}

func joinAddrs(addrs []common.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.Hex()
	}
	return strings.Join(parts, ",")
}

// ---------------------------------------------------------------------------
// pull payments
// ---------------------------------------------------------------------------

// ClaimTokens moves a contributor's purchased tokens out of the presale vault.
func (e *Engine) ClaimTokens(ctx context.Context, id issuance.ID, contributor common.Address) (*big.Int, error) {
	var amount *big.Int
	in, err := e.mutate(ctx, id, "claim_tokens", func(in *issuance.Instance, _ int64) error {
		a, err := in.ClaimTokens(contributor)
		amount = a
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordClaim("tokens")
	e.emit(in, EventTokensClaimed, map[string]string{"contributor": contributor.Hex(), "amount": amount.String()})
	return amount, nil
}

// ClaimVested releases vested tokens to the beneficiary.
func (e *Engine) ClaimVested(ctx context.Context, id issuance.ID, beneficiary common.Address) (*big.Int, error) {
	var amount *big.Int
	in, err := e.mutate(ctx, id, "claim_vested", func(in *issuance.Instance, now int64) error {
		a, err := in.ClaimVested(beneficiary, now)
		amount = a
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordClaim("vested")
	e.emit(in, EventVestedClaimed, map[string]string{"beneficiary": beneficiary.Hex(), "amount": amount.String()})
	return amount, nil
}

// ClaimRefund zeroes the contributor's record, then pays it back. A failed
// payout restores the record.
func (e *Engine) ClaimRefund(ctx context.Context, id issuance.ID, contributor common.Address) (*big.Int, error) {
	var amount *big.Int
	in, err := e.mutate(ctx, id, "claim_refund", func(in *issuance.Instance, _ int64) error {
		a, err := in.ClaimRefund(contributor)
		amount = a
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := e.payout(ctx, id, PayoutRefund, contributor, amount, func(in *issuance.Instance) {
		in.RecreditRefund(contributor, amount)
	}); err != nil {
		return nil, err
	}
	e.metrics.RecordClaim("refund")
	e.emit(in, EventRefundClaimed, map[string]string{"contributor": contributor.Hex(), "amount": amount.String()})
	return amount, nil
}

// ClaimProceeds pays the owner the raise minus the liquidity reserve.
func (e *Engine) ClaimProceeds(ctx context.Context, id issuance.ID, caller common.Address) (*big.Int, error) {
	var amount *big.Int
	in, err := e.mutate(ctx, id, "claim_proceeds", func(in *issuance.Instance, _ int64) error {
		a, err := in.ClaimProceeds(caller)
		amount = a
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := e.payout(ctx, id, PayoutProceeds, caller, amount, func(in *issuance.Instance) {
		in.RecreditProceeds(amount)
	}); err != nil {
		return nil, err
	}
	e.metrics.RecordClaim("proceeds")
	e.emit(in, EventProceedsClaimed, map[string]string{"owner": caller.Hex(), "amount": amount.String()})
	return amount, nil
}

// RevokeVesting stops a revocable schedule and returns the unreleased
// remainder to the owner.
func (e *Engine) RevokeVesting(ctx context.Context, id issuance.ID, caller, beneficiary common.Address) (*big.Int, error) {
	var amount *big.Int
	in, err := e.mutate(ctx, id, "revoke_vesting", func(in *issuance.Instance, _ int64) error {
		a, err := in.RevokeVesting(caller, beneficiary)
		amount = a
		return err
	})
	if err != nil {
		return nil, err
	}
	e.emit(in, EventVestingRevoked, map[string]string{"beneficiary": beneficiary.Hex(), "returned": amount.String()})
	return amount, nil
}

// WithdrawLiquidity releases the liquidity lock to its owner once unlocked.
// The token reserve moves through the ledger; the native reserve is paid out
// and, if that payout fails, becomes claimable proceeds.
func (e *Engine) WithdrawLiquidity(ctx context.Context, id issuance.ID, caller common.Address) (*issuance.LiquidityLock, error) {
	var lock *issuance.LiquidityLock
	in, err := e.mutate(ctx, id, "withdraw_liquidity", func(in *issuance.Instance, now int64) error {
		l, err := in.WithdrawLiquidity(caller, now)
		lock = l
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := e.payout(ctx, id, PayoutLiquidity, lock.Owner, lock.NativeAmount, func(in *issuance.Instance) {
		in.RecreditProceeds(lock.NativeAmount)
	}); err != nil {
		return nil, err
	}
	e.metrics.RecordClaim("liquidity")
	e.emit(in, EventLiquidityWithdrawn, map[string]string{
		"owner":  lock.Owner.Hex(),
		"tokens": lock.TokenAmount.String(),
		"native": lock.NativeAmount.String(),
	})
	return lock, nil
}
