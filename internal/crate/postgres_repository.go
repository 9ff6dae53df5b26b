package crate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/database"
	"github.com/crateport/crateport/internal/owner"
)

// reservedNames is the set of names shipped with the language
// distribution; publishing any of them is rejected at insert time.
var reservedNames = map[string]struct{}{
	"alloc":      {},
	"core":       {},
	"proc_macro": {},
	"rustc":      {},
	"std":        {},
	"test":       {},
}

const crateColumns = `id, name, user_id, updated_at, created_at, downloads,
	       max_version, description, homepage, documentation, readme,
	       keywords, license, repository`

// PostgresRepository implements Repository over a database.Querier, which
// is the pool for plain reads and a pgx.Tx inside the publish pipeline.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// FindByName resolves a crate by canonical name.
func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*Crate, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM crates
		WHERE canon_crate_name(name) = canon_crate_name($1)
		LIMIT 1`, crateColumns)

	return r.scanOne(ctx, query, name)
}

// FindOrInsert implements update-then-insert reconciliation on the
// canonical name. The UPDATE carries the candidate's mutable metadata so
// a re-publish refreshes description, urls, keywords and license in the
// same statement that finds the row. Two concurrent inserts of a brand-new
// name can both pass the UPDATE with zero rows; the second INSERT then
// fails on the canonical-name unique index and is reported as ErrNameTaken.
func (r *PostgresRepository) FindOrInsert(ctx context.Context, nc NewCrate) (*Crate, error) {
	updateQuery := fmt.Sprintf(`
		UPDATE crates
		SET description = $1,
		    homepage = $2,
		    documentation = $3,
		    readme = $4,
		    keywords = $5,
		    license = $6,
		    repository = $7,
		    updated_at = NOW()
		WHERE canon_crate_name(name) = canon_crate_name($8)
		RETURNING %s`, crateColumns)

	keywords := strings.Join(nc.Keywords, ",")
	c, err := r.scanOne(ctx, updateQuery,
		nc.Description, nc.Homepage, nc.Documentation, nc.Readme,
		keywords, nc.License, nc.Repository, nc.Name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, ok := reservedNames[CanonName(nc.Name)]; ok {
		return nil, ErrReservedName
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO crates
			(name, user_id, created_at, updated_at, downloads, max_version,
			 description, homepage, documentation, readme, keywords, license,
			 repository)
		VALUES ($1, $2, NOW(), NOW(), 0, '0.0.0', $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, crateColumns)

	c, err = r.scanOne(ctx, insertQuery,
		nc.Name, nc.UserID, nc.Description, nc.Homepage, nc.Documentation,
		nc.Readme, keywords, nc.License, nc.Repository)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}

	// The publishing user becomes the first owner of a new crate.
	_, err = r.q.Exec(ctx, `
		INSERT INTO crate_owners
			(crate_id, owner_id, created_by, created_at, updated_at, deleted, owner_kind)
		VALUES ($1, $2, $2, NOW(), NOW(), FALSE, $3)`,
		c.ID, nc.UserID, owner.KindUser)
	if err != nil {
		return nil, fmt.Errorf("inserting initial crate owner: %w", err)
	}

	return c, nil
}

// SetMaxVersion rewrites the recorded highest version and touches updated_at.
func (r *PostgresRepository) SetMaxVersion(ctx context.Context, id int64, maxVersion string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE crates SET updated_at = NOW(), max_version = $1
		WHERE id = $2`, maxVersion, id)
	if err != nil {
		return fmt.Errorf("updating crate max version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Follow(ctx context.Context, crateID, userID int64) error {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM follows WHERE crate_id = $1 AND user_id = $2
		)`, crateID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking existing follow: %w", err)
	}
	if exists {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO follows (crate_id, user_id) VALUES ($1, $2)`, crateID, userID)
	if err != nil {
		// A concurrent follow of the same pair is still a follow.
		if database.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("inserting follow: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Unfollow(ctx context.Context, crateID, userID int64) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM follows WHERE crate_id = $1 AND user_id = $2`, crateID, userID)
	if err != nil {
		return fmt.Errorf("deleting follow: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsFollowing(ctx context.Context, crateID, userID int64) (bool, error) {
	var following bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM follows WHERE crate_id = $1 AND user_id = $2
		)`, crateID, userID).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("checking follow: %w", err)
	}
	return following, nil
}

// scanOne scans a single Crate row from a query. Returns ErrNotFound if no rows.
func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Crate, error) {
	var c Crate
	var keywords *string
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.UserID, &c.UpdatedAt, &c.CreatedAt, &c.Downloads,
		&c.MaxVersion, &c.Description, &c.Homepage, &c.Documentation,
		&c.Readme, &keywords, &c.License, &c.Repository,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if database.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("scanning crate row: %w", err)
	}
	c.Keywords = splitKeywords(keywords)
	return &c, nil
}

func splitKeywords(csv *string) []string {
	if csv == nil || *csv == "" {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(*csv, ",") {
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
