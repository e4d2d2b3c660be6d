package storage

import (
	"context"

	"github.com/getantonio/tokenhub/internal/issuance"
)

// IssuanceStore persists one record per issuance, keyed by its ID.
// Implementations store and return deep copies; callers own what they get.
type IssuanceStore interface {
	// Insert adds a new issuance. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, in *issuance.Instance) error

	// Get returns the issuance with the given ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id issuance.ID) (*issuance.Instance, error)

	// Update replaces the stored record if its version equals expectedVersion.
	// in.Version must already carry the new version.
	// Returns ErrNotFound or ErrVersionConflict.
	Update(ctx context.Context, in *issuance.Instance, expectedVersion uint64) error

	// List returns all issuances ordered by creation time, then ID.
	List(ctx context.Context) ([]*issuance.Instance, error)
}

// ValidateInstance rejects records no store should accept.
func ValidateInstance(in *issuance.Instance) error {
	if in == nil || in.ID == "" || in.Ledger == nil {
		return ErrInvalidInput
	}
	return nil
}
