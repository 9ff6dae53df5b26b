package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/database"
)

const userColumns = `id, gh_login, name, email, gh_avatar, gh_access_token,
	       api_token_prefix, api_token_hash`

// PostgresRepository implements Repository over a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// FindByLogin retrieves a user by external login.
func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE gh_login = $1`, userColumns)
	return r.scanOne(ctx, query, login)
}

// FindByTokenPrefix returns all users whose API token prefix matches.
func (r *PostgresRepository) FindByTokenPrefix(ctx context.Context, prefix string) ([]User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE api_token_prefix = $1`, userColumns)

	rows, err := r.q.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("querying users by token prefix: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

// FindOrInsert implements update-then-insert reconciliation keyed on
// GhLogin. A concurrent first login by the same identity can race the
// insert; the loser's unique violation surfaces as ErrLoginTaken.
func (r *PostgresRepository) FindOrInsert(ctx context.Context, nu NewUser) (*User, error) {
	updateQuery := fmt.Sprintf(`
		UPDATE users
		SET gh_access_token = $1,
		    name = $2,
		    email = $3,
		    gh_avatar = $4,
		    api_token_prefix = $5,
		    api_token_hash = $6
		WHERE gh_login = $7
		RETURNING %s`, userColumns)

	u, err := r.scanOne(ctx, updateQuery,
		nu.GhAccessToken, nu.Name, nu.Email, nu.Avatar,
		nu.APITokenPrefix, nu.APITokenHash, nu.GhLogin)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO users
			(gh_login, name, email, gh_avatar, gh_access_token,
			 api_token_prefix, api_token_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, userColumns)

	u, err = r.scanOne(ctx, insertQuery,
		nu.GhLogin, nu.Name, nu.Email, nu.Avatar, nu.GhAccessToken,
		nu.APITokenPrefix, nu.APITokenHash)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrLoginTaken
		}
		return nil, err
	}
	return u, nil
}

// SetAPIToken replaces a user's API token prefix and hash.
func (r *PostgresRepository) SetAPIToken(ctx context.Context, id int64, prefix, hash string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users SET api_token_prefix = $1, api_token_hash = $2
		WHERE id = $3`, prefix, hash, id)
	if err != nil {
		return fmt.Errorf("updating user api token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := scanUser(r.q.QueryRow(ctx, query, args...), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *User) error {
	err := row.Scan(
		&u.ID, &u.GhLogin, &u.Name, &u.Email, &u.Avatar,
		&u.GhAccessToken, &u.APITokenPrefix, &u.APITokenHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if database.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("scanning user row: %w", err)
	}
	return nil
}
