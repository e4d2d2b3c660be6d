package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/storage"
)

// IssuanceStore persists issuances to a single JSON file, rewritten on every
// change. It is meant for the CLI, where one process owns the file.
type IssuanceStore struct {
	mu   sync.Mutex
	path string
}

// NewIssuanceStore creates a JSON-backed issuance store at path.
func NewIssuanceStore(path string) *IssuanceStore {
	return &IssuanceStore{path: path}
}

type file struct {
	Issuances []*issuance.Instance `json:"issuances"`
}

func (s *IssuanceStore) load() (map[issuance.ID]*issuance.Instance, error) {
	out := make(map[issuance.ID]*issuance.Instance)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	for _, in := range f.Issuances {
		out[in.ID] = in
	}
	return out, nil
}

func (s *IssuanceStore) save(m map[issuance.ID]*issuance.Instance) error {
	f := file{Issuances: make([]*issuance.Instance, 0, len(m))}
	for _, in := range m {
		f.Issuances = append(f.Issuances, in)
	}
	storage.SortByCreation(f.Issuances)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Insert adds a new issuance. Returns ErrDuplicateKey if the ID exists.
func (s *IssuanceStore) Insert(_ context.Context, in *issuance.Instance) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := m[in.ID]; exists {
		return storage.ErrDuplicateKey
	}
	m[in.ID] = in
	return s.save(m)
}

// Get returns the issuance. Returns ErrNotFound if missing.
func (s *IssuanceStore) Get(_ context.Context, id issuance.ID) (*issuance.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	in, exists := m[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return in, nil
}

// Update replaces the record if the stored version matches expectedVersion.
func (s *IssuanceStore) Update(_ context.Context, in *issuance.Instance, expectedVersion uint64) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	cur, exists := m[in.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	m[in.ID] = in
	return s.save(m)
}

// List returns all issuances ordered by creation.
func (s *IssuanceStore) List(_ context.Context) ([]*issuance.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*issuance.Instance, 0, len(m))
	for _, in := range m {
		out = append(out, in)
	}
	storage.SortByCreation(out)
	return out, nil
}

var _ storage.IssuanceStore = (*IssuanceStore)(nil)
