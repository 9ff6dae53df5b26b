package keyword

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/database"
)

// PostgresRepository implements Repository over a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// FindOrInsert returns the keyword row, creating it if absent. Keywords
// are stored lower-cased; the insert race falls back to a re-select.
func (r *PostgresRepository) FindOrInsert(ctx context.Context, keyword string) (*Keyword, error) {
	keyword = strings.ToLower(keyword)

	k, err := r.findByName(ctx, keyword)
	if err == nil {
		return k, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("querying keyword: %w", err)
	}

	var inserted Keyword
	err = r.q.QueryRow(ctx, `
		INSERT INTO keywords (keyword, crates_cnt, created_at)
		VALUES ($1, 0, NOW())
		RETURNING id, keyword, crates_cnt, created_at`, keyword).
		Scan(&inserted.ID, &inserted.Keyword, &inserted.CratesCnt, &inserted.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			k, err := r.findByName(ctx, keyword)
			if err != nil {
				return nil, fmt.Errorf("re-querying keyword after insert race: %w", err)
			}
			return k, nil
		}
		return nil, fmt.Errorf("inserting keyword: %w", err)
	}
	return &inserted, nil
}

// UpdateCrate replaces a crate's keyword associations with the given set.
func (r *PostgresRepository) UpdateCrate(ctx context.Context, crateID int64, keywords []string) error {
	current, err := r.ByCrate(ctx, crateID)
	if err != nil {
		return err
	}

	wanted := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		wanted[strings.ToLower(kw)] = struct{}{}
	}

	for _, old := range current {
		if _, keep := wanted[old.Keyword]; keep {
			delete(wanted, old.Keyword)
			continue
		}
		_, err := r.q.Exec(ctx, `
			DELETE FROM crates_keywords
			WHERE crate_id = $1 AND keyword_id = $2`, crateID, old.ID)
		if err != nil {
			return fmt.Errorf("unlinking keyword %s: %w", old.Keyword, err)
		}
		_, err = r.q.Exec(ctx, `
			UPDATE keywords SET crates_cnt = crates_cnt - 1
			WHERE id = $1`, old.ID)
		if err != nil {
			return fmt.Errorf("decrementing keyword count: %w", err)
		}
	}

	for kw := range wanted {
		k, err := r.FindOrInsert(ctx, kw)
		if err != nil {
			return err
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO crates_keywords (crate_id, keyword_id)
			VALUES ($1, $2)`, crateID, k.ID)
		if err != nil {
			return fmt.Errorf("linking keyword %s: %w", kw, err)
		}
		_, err = r.q.Exec(ctx, `
			UPDATE keywords SET crates_cnt = crates_cnt + 1
			WHERE id = $1`, k.ID)
		if err != nil {
			return fmt.Errorf("incrementing keyword count: %w", err)
		}
	}

	return nil
}

// ByCrate returns the keywords associated with a crate.
func (r *PostgresRepository) ByCrate(ctx context.Context, crateID int64) ([]Keyword, error) {
	rows, err := r.q.Query(ctx, `
		SELECT keywords.id, keywords.keyword, keywords.crates_cnt, keywords.created_at
		FROM keywords
		INNER JOIN crates_keywords ON keywords.id = crates_keywords.keyword_id
		WHERE crates_keywords.crate_id = $1`, crateID)
	if err != nil {
		return nil, fmt.Errorf("querying crate keywords: %w", err)
	}
	defer rows.Close()

	var out []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.Keyword, &k.CratesCnt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning keyword row: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) findByName(ctx context.Context, keyword string) (*Keyword, error) {
	var k Keyword
	err := r.q.QueryRow(ctx, `
		SELECT id, keyword, crates_cnt, created_at
		FROM keywords WHERE keyword = $1`, keyword).
		Scan(&k.ID, &k.Keyword, &k.CratesCnt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
