package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/getantonio/tokenhub/internal/issuance"
)

// Event types.
const (
	EventIssuanceCreated    = "issuance.created"
	EventMinted             = "token.minted"
	EventTransferred        = "token.transferred"
	EventBurned             = "token.burned"
	EventContributed        = "presale.contributed"
	EventPresaleClosed      = "presale.closed"
	EventPresaleFinalized   = "presale.finalized"
	EventPresaleRefunding   = "presale.refunding"
	EventWhitelistChanged   = "presale.whitelist_changed"
	EventTokensClaimed      = "claim.tokens"
	EventRefundClaimed      = "claim.refund"
	EventVestedClaimed      = "claim.vested"
	EventProceedsClaimed    = "claim.proceeds"
	EventVestingRevoked     = "vesting.revoked"
	EventLiquidityWithdrawn = "liquidity.withdrawn"
)

// Event describes one committed transition.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	IssuanceID issuance.ID       `json:"issuance_id"`
	Version    uint64            `json:"version"`
	At         time.Time         `json:"at"`
	Data       map[string]string `json:"data,omitempty"`
}

// EventSink receives committed events. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev Event)

// Publish calls f.
func (f EventSinkFunc) Publish(ev Event) { f(ev) }

// Subscribe registers sink for every future event.
func (e *Engine) Subscribe(sink EventSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sinks = append(e.sinks, sink)
}

func (e *Engine) emit(in *issuance.Instance, typ string, data map[string]string) {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		IssuanceID: in.ID,
		Version:    in.Version,
		At:         time.Unix(in.UpdatedAt, 0).UTC(),
		Data:       data,
	}

	e.sinkMu.RLock()
	defer e.sinkMu.RUnlock()
	for _, s := range e.sinks {
		s.Publish(ev)
	}
}
