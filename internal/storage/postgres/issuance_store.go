package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/storage"
)

// IssuanceStore implements storage.IssuanceStore using PostgreSQL. The whole
// instance is kept as a JSONB snapshot; id, owner, symbol, status and version
// are broken out for lookups and the optimistic version check.
type IssuanceStore struct {
	pool *Pool
}

// NewIssuanceStore creates a new IssuanceStore.
func NewIssuanceStore(pool *Pool) *IssuanceStore {
	return &IssuanceStore{pool: pool}
}

var _ storage.IssuanceStore = (*IssuanceStore)(nil)

// Insert adds a new issuance. Returns ErrDuplicateKey if the ID exists.
func (s *IssuanceStore) Insert(ctx context.Context, in *issuance.Instance) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}
	state, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode issuance: %w", err)
	}

	query := `
		INSERT INTO issuances (id, owner, symbol, status, version, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.pool.Exec(ctx, query,
		string(in.ID),
		in.Issuance.Owner.Hex(),
		in.Issuance.Symbol,
		in.Status(in.UpdatedAt),
		int64(in.Version),
		state,
		in.CreatedAt,
		in.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert issuance: %w", err)
	}
	return nil
}

// Get returns the issuance. Returns ErrNotFound if missing.
func (s *IssuanceStore) Get(ctx context.Context, id issuance.ID) (*issuance.Instance, error) {
	var state []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM issuances WHERE id = $1`, string(id)).Scan(&state)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get issuance: %w", err)
	}
	return decode(state)
}

// Update replaces the record if the stored version matches expectedVersion.
func (s *IssuanceStore) Update(ctx context.Context, in *issuance.Instance, expectedVersion uint64) error {
	if err := storage.ValidateInstance(in); err != nil {
		return err
	}
	state, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode issuance: %w", err)
	}

	query := `
		UPDATE issuances
		SET status = $3, version = $4, state = $5, updated_at = $6
		WHERE id = $1 AND version = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		string(in.ID),
		int64(expectedVersion),
		in.Status(in.UpdatedAt),
		int64(in.Version),
		state,
		in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update issuance: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM issuances WHERE id = $1)`, string(in.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("check issuance: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrVersionConflict
}

// List returns all issuances ordered by creation.
func (s *IssuanceStore) List(ctx context.Context) ([]*issuance.Instance, error) {
	rows, err := s.pool.Query(ctx, `SELECT state FROM issuances ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	defer rows.Close()

	var out []*issuance.Instance
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		in, err := decode(state)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return out, nil
}

func decode(state []byte) (*issuance.Instance, error) {
	var in issuance.Instance
	if err := json.Unmarshal(state, &in); err != nil {
		return nil, fmt.Errorf("decode issuance: %w", err)
	}
	return &in, nil
}
