package publish

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/database"
	"github.com/crateport/crateport/internal/keyword"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/version"
)

// MetadataStore opens the single database transaction that spans the
// pipeline's metadata stages. The artifact upload and index append run
// after this transaction commits; they are deliberately outside it.
type MetadataStore interface {
	Begin(ctx context.Context) (MetadataTx, error)
}

// MetadataTx exposes transaction-scoped repositories to the pipeline.
type MetadataTx interface {
	Crates() crate.Repository
	Versions() version.Repository
	Owners() owner.Repository
	Keywords() keyword.Repository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PgMetadataStore implements MetadataStore over the registry database.
type PgMetadataStore struct {
	db *database.DB
}

// NewMetadataStore creates a MetadataStore over db.
func NewMetadataStore(db *database.DB) *PgMetadataStore {
	return &PgMetadataStore{db: db}
}

// Begin opens a transaction and returns repositories bound to it.
func (s *PgMetadataStore) Begin(ctx context.Context) (MetadataTx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgMetadataTx{tx: tx}, nil
}

type pgMetadataTx struct {
	tx pgx.Tx
}

func (t *pgMetadataTx) Crates() crate.Repository     { return crate.NewRepository(t.tx) }
func (t *pgMetadataTx) Versions() version.Repository { return version.NewRepository(t.tx) }
func (t *pgMetadataTx) Owners() owner.Repository     { return owner.NewRepository(t.tx) }
func (t *pgMetadataTx) Keywords() keyword.Repository { return keyword.NewRepository(t.tx) }

func (t *pgMetadataTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing publish transaction: %w", err)
	}
	return nil
}

func (t *pgMetadataTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
