// Package engine runs issuances as independent single-writer state machines.
//
// Each issuance lives behind its own mutex. A mutating call clones the live
// instance, applies the transition, persists the clone under an optimistic
// version, and only then swaps it in; a rejected check or a failed write
// leaves the live copy untouched. Native payouts run after the instance lock
// is released, and a failed payout is re-credited by a compensating write.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/observability"
	"github.com/getantonio/tokenhub/internal/storage"
	"github.com/getantonio/tokenhub/internal/storage/memory"
)

// ErrNotFound is returned for an unknown issuance ID.
var ErrNotFound = errors.New("issuance not found")

// maxConflictRetries bounds reloads after another writer bumped the version.
const maxConflictRetries = 3

// Engine is the IssuanceID-keyed registry of live instances.
type Engine struct {
	store   storage.IssuanceStore
	payer   Payer
	log     logrus.FieldLogger
	metrics *observability.Metrics
	clock   func() time.Time

	mu      sync.Mutex
	entries map[issuance.ID]*entry

	sinkMu sync.RWMutex
	sinks  []EventSink
}

// entry owns one instance. Its mutex serializes every operation on it.
type entry struct {
	mu   sync.Mutex
	inst *issuance.Instance
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(s storage.IssuanceStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithPayer sets the native-currency payout channel.
func WithPayer(p Payer) Option {
	return func(e *Engine) {
		e.payer = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides time.Now, e.g. for simulations at a fixed time.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetLevel(logrus.PanicLevel)

	e := &Engine{
		store:   memory.NewIssuanceStore(),
		payer:   NewRecordingPayer(),
		log:     discard,
		clock:   time.Now,
		entries: make(map[issuance.ID]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock in unix seconds.
func (e *Engine) Now() int64 {
	return e.clock().Unix()
}

// Store returns the persistence backend.
func (e *Engine) Store() storage.IssuanceStore {
	return e.store
}

// entry returns the registry entry for id, loading it from the store on
// first use.
func (e *Engine) entry(ctx context.Context, id issuance.ID) (*entry, error) {
	e.mu.Lock()
	ent, ok := e.entries[id]
	e.mu.Unlock()
	if ok {
		return ent, nil
	}

	in, err := e.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.entries[id]; ok {
		return ent, nil
	}
	ent = &entry{inst: in}
	e.entries[id] = ent
	if e.metrics != nil {
		e.metrics.IssuancesLoaded.Set(float64(len(e.entries)))
	}
	return ent, nil
}

// view runs fn on a clone of the live instance under its lock.
func (e *Engine) view(ctx context.Context, id issuance.ID, fn func(in *issuance.Instance) error) error {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	in := ent.inst.Clone()
	ent.mu.Unlock()
	return fn(in)
}

// mutate applies fn to a clone of the instance, persists it and swaps it in.
// fn may run more than once if the store reports a version conflict.
func (e *Engine) mutate(ctx context.Context, id issuance.ID, op string, fn func(in *issuance.Instance, now int64) error) (*issuance.Instance, error) {
	started := time.Now()
	in, err := e.commit(ctx, id, op, fn)
	e.metrics.RecordOperation(op, time.Since(started).Seconds(), err)

	log := e.log.WithFields(logrus.Fields{"issuance": id, "op": op})
	if err != nil {
		if kind, ok := issuance.KindOf(err); ok {
			log.WithField("kind", kind.String()).Debug(err)
		} else {
			log.WithError(err).Warn("operation failed")
		}
		return nil, err
	}
	log.WithField("version", in.Version).Info("committed")
	return in, nil
}

func (e *Engine) commit(ctx context.Context, id issuance.ID, op string, fn func(in *issuance.Instance, now int64) error) (*issuance.Instance, error) {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	for attempt := 0; ; attempt++ {
		now := e.Now()
		next := ent.inst.Clone()
		if err := fn(next, now); err != nil {
			return nil, err
		}
		prev := ent.inst.Version
		next.Version = prev + 1
		next.UpdatedAt = now

		err := e.store.Update(ctx, next, prev)
		if err == nil {
			ent.inst = next
			return next.Clone(), nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt >= maxConflictRetries {
			return nil, fmt.Errorf("%s: persisting %s: %w", op, id, err)
		}

		if e.metrics != nil {
			e.metrics.VersionConflicts.Inc()
		}
		e.log.WithFields(logrus.Fields{"issuance": id, "op": op, "version": prev}).Warn("version conflict, reloading")
		fresh, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: reloading %s: %w", op, id, err)
		}
		ent.inst = fresh
	}
}

// payout sends amount to the recipient and, if that fails, runs recredit as
// a compensating write so the claim can be retried.
func (e *Engine) payout(ctx context.Context, id issuance.ID, kind string, to common.Address, amount *big.Int, recredit func(in *issuance.Instance)) error {
	if amount.Sign() == 0 {
		return nil
	}
	err := e.payer.Pay(ctx, Payment{IssuanceID: id, Kind: kind, To: to, Amount: amount})
	if err == nil {
		return nil
	}

	e.metrics.RecordPayoutFailure(kind)
	e.log.WithFields(logrus.Fields{
		"issuance": id,
		"kind":     kind,
		"to":       to.Hex(),
		"amount":   amount.String(),
	}).WithError(err).Error("payout failed, re-crediting")

	_, cerr := e.mutate(ctx, id, "recredit_"+kind, func(in *issuance.Instance, _ int64) error {
		recredit(in)
		return nil
	})
	if cerr != nil {
		return errors.Join(fmt.Errorf("payout %s: %w", kind, err), fmt.Errorf("re-credit %s: %w", kind, cerr))
	}
	return fmt.Errorf("payout %s: %w", kind, err)
}
