package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"github.com/getantonio/tokenhub/internal/config"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/storage"
	"github.com/getantonio/tokenhub/internal/storage/jsonfile"
	"github.com/getantonio/tokenhub/internal/storage/memory"
	"github.com/getantonio/tokenhub/internal/storage/migrations"
	"github.com/getantonio/tokenhub/internal/storage/postgres"
	"github.com/getantonio/tokenhub/internal/ui"
	"github.com/getantonio/tokenhub/internal/wallet"
)

const payoutsFile = "payouts.jsonl"

// openStore builds the configured IssuanceStore. The returned func releases
// it.
func openStore(ctx context.Context, c *config.Config) (storage.IssuanceStore, func(), error) {
	switch c.Store {
	case config.StoreMemory:
		return memory.NewIssuanceStore(), func() {}, nil
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(ctx, config.StoreOpenTimeout)
		defer cancel()

		sp := ui.NewSpinner("Connecting to postgres…")
		sp.Start()
		pool, err := postgres.NewPool(ctx, c.PostgresDSN)
		if err == nil {
			err = migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				pool.Close()
			}
		}
		sp.Stop()
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return postgres.NewIssuanceStore(pool), pool.Close, nil
	default:
		return jsonfile.NewIssuanceStore(c.IssuancesPath()), func() {}, nil
	}
}

// openEngine wires store, payout journal, logger and clock into an engine.
func openEngine(ctx context.Context, opts ...engine.Option) (*engine.Engine, func(), error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	base := []engine.Option{
		engine.WithStore(store),
		engine.WithPayer(engine.NewJournalPayer(filepath.Join(cfg.Dir(), payoutsFile))),
		engine.WithLogger(log),
		engine.WithClock(clock()),
	}
	return engine.New(append(base, opts...)...), closeStore, nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store and
// the default keystore.
func newWalletManager() (*wallet.Manager, error) {
	ks, err := wallet.DefaultKeystore(cfg.Dir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(ks),
	), nil
}

// actingWallet resolves --from, then the configured default, then the
// manager's default. The wallet must hold a key: commands only act for
// addresses whose keys live in this keystore.
func actingWallet(mgr *wallet.Manager) (*wallet.Wallet, error) {
	ref := fromFlag
	if ref == "" {
		ref = cfg.DefaultWallet
	}

	var w *wallet.Wallet
	switch {
	case ref == "":
		w = mgr.Default()
		if w == nil {
			return nil, errors.New("no wallet selected: pass --from or create one with `tokenhub wallet new <name>`")
		}
	case common.IsHexAddress(ref):
		all, err := mgr.List()
		if err != nil {
			return nil, err
		}
		for _, candidate := range all {
			if candidate.Address == common.HexToAddress(ref) {
				w = candidate
				break
			}
		}
		if w == nil {
			return nil, fmt.Errorf("%s is not a wallet in this keystore", ref)
		}
	default:
		var err error
		if w, err = mgr.Get(ref); err != nil {
			return nil, err
		}
	}

	if !w.CanSign() {
		return nil, fmt.Errorf("%w: %s cannot act as caller", wallet.ErrWatchOnly, w.Name)
	}
	return w, nil
}

// caller returns the acting wallet's address.
func caller() (common.Address, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return common.Address{}, err
	}
	w, err := actingWallet(mgr)
	if err != nil {
		return common.Address{}, err
	}
	log.WithField("wallet", w.Name).Debug("acting wallet")
	return w.Address, nil
}

// resolveAddress accepts a wallet name or a 0x address.
func resolveAddress(ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	mgr, err := newWalletManager()
	if err != nil {
		return common.Address{}, err
	}
	return mgr.Resolve(ref)
}

// resolveIssuance returns the id given on the command line, or asks the user
// to pick one.
func resolveIssuance(ctx context.Context, eng *engine.Engine, args []string) (issuance.ID, error) {
	if len(args) > 0 && args[0] != "" {
		return issuance.ID(args[0]), nil
	}
	list, err := eng.List(ctx)
	if err != nil {
		return "", err
	}
	now := eng.Now()
	items := make([]ui.IssuanceItem, len(list))
	for i, in := range list {
		items[i] = ui.IssuanceItem{Symbol: in.Issuance.Symbol, ID: in.ID.String(), Status: in.Status(now)}
	}
	picked, err := ui.PickIssuance("Select issuance", items)
	if err != nil {
		return "", err
	}
	if picked == "" {
		return "", errors.New("cancelled")
	}
	return issuance.ID(picked), nil
}

// describeError prefixes engine rejections with their kind and code.
func describeError(err error) string {
	if kind, ok := issuance.KindOf(err); ok {
		if code := issuance.CodeOf(err); code != "" {
			return fmt.Sprintf("%s (%s): %v", kind, code, err)
		}
		return fmt.Sprintf("%s: %v", kind, err)
	}
	return err.Error()
}
