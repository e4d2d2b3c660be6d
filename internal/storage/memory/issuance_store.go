package memory

import (
	"context"
	"sync"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/storage"
)

// IssuanceStore is an in-memory implementation of storage.IssuanceStore.
type IssuanceStore struct {
	mu   sync.RWMutex
	data map[issuance.ID]*issuance.Instance
}

// NewIssuanceStore creates a new in-memory issuance store.
func NewIssuanceStore() *IssuanceStore {
	return &IssuanceStore{
		data: make(map[issuance.ID]*issuance.Instance),
	}
}

// Insert adds a new issuance. Returns ErrDuplicateKey if the ID exists.
func (s *IssuanceStore) Insert(_ context.Context, in *issuance.Instance) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[in.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[in.ID] = in.Clone()
	return nil
}

// Get returns a copy of the issuance. Returns ErrNotFound if missing.
func (s *IssuanceStore) Get(_ context.Context, id issuance.ID) (*issuance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return in.Clone(), nil
}

// Update replaces the record if the stored version matches expectedVersion.
func (s *IssuanceStore) Update(_ context.Context, in *issuance.Instance, expectedVersion uint64) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[in.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	s.data[in.ID] = in.Clone()
	return nil
}

// List returns copies of all issuances ordered by creation.
func (s *IssuanceStore) List(_ context.Context) ([]*issuance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*issuance.Instance, 0, len(s.data))
	for _, in := range s.data {
		out = append(out, in.Clone())
	}
	storage.SortByCreation(out)
	return out, nil
}

var _ storage.IssuanceStore = (*IssuanceStore)(nil)
