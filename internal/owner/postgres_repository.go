package owner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/database"
	"github.com/crateport/crateport/internal/user"
)

// PostgresRepository implements Repository over a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// Owners returns the current (non-deleted) owner set for a crate: user
// owners first, then team owners.
func (r *PostgresRepository) Owners(ctx context.Context, crateID int64) ([]Owner, error) {
	var owners []Owner

	rows, err := r.q.Query(ctx, `
		SELECT users.id, users.gh_login, users.name, users.email, users.gh_avatar,
		       users.gh_access_token, users.api_token_prefix, users.api_token_hash
		FROM users
		INNER JOIN crate_owners ON crate_owners.owner_id = users.id
		WHERE crate_owners.crate_id = $1
		  AND crate_owners.deleted = FALSE
		  AND crate_owners.owner_kind = $2`, crateID, KindUser)
	if err != nil {
		return nil, fmt.Errorf("querying user owners: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u user.User
		err := rows.Scan(&u.ID, &u.GhLogin, &u.Name, &u.Email, &u.Avatar,
			&u.GhAccessToken, &u.APITokenPrefix, &u.APITokenHash)
		if err != nil {
			return nil, fmt.Errorf("scanning user owner row: %w", err)
		}
		owners = append(owners, UserOwner{User: u})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user owner rows: %w", err)
	}

	teamRows, err := r.q.Query(ctx, `
		SELECT teams.id, teams.login, teams.github_id, teams.name, teams.avatar
		FROM teams
		INNER JOIN crate_owners ON crate_owners.owner_id = teams.id
		WHERE crate_owners.crate_id = $1
		  AND crate_owners.deleted = FALSE
		  AND crate_owners.owner_kind = $2`, crateID, KindTeam)
	if err != nil {
		return nil, fmt.Errorf("querying team owners: %w", err)
	}
	defer teamRows.Close()
	for teamRows.Next() {
		var t Team
		err := teamRows.Scan(&t.RowID, &t.TeamLogin, &t.GithubID, &t.Name, &t.Avatar)
		if err != nil {
			return nil, fmt.Errorf("scanning team owner row: %w", err)
		}
		owners = append(owners, TeamOwner{Team: t})
	}
	if err := teamRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team owner rows: %w", err)
	}

	return owners, nil
}

// FindByLogin resolves a login to an existing user or team identity.
func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (Owner, error) {
	if strings.Contains(login, ":") {
		var t Team
		err := r.q.QueryRow(ctx, `
			SELECT id, login, github_id, name, avatar
			FROM teams WHERE login = $1`, login).
			Scan(&t.RowID, &t.TeamLogin, &t.GithubID, &t.Name, &t.Avatar)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrOwnerNotFound
			}
			return nil, fmt.Errorf("querying team by login: %w", err)
		}
		return TeamOwner{Team: t}, nil
	}

	var u user.User
	err := r.q.QueryRow(ctx, `
		SELECT id, gh_login, name, email, gh_avatar, gh_access_token,
		       api_token_prefix, api_token_hash
		FROM users WHERE gh_login = $1`, login).
		Scan(&u.ID, &u.GhLogin, &u.Name, &u.Email, &u.Avatar,
			&u.GhAccessToken, &u.APITokenPrefix, &u.APITokenHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("querying user by login: %w", err)
	}
	return UserOwner{User: u}, nil
}

// Add revives a soft-deleted owner row or inserts a fresh one. The
// update-first ordering preserves the original created_by audit trail on
// re-add.
func (r *PostgresRepository) Add(ctx context.Context, crateID int64, o Owner, userID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE crate_owners
		SET deleted = FALSE, updated_at = NOW()
		WHERE crate_id = $1 AND owner_id = $2 AND owner_kind = $3`,
		crateID, o.ID(), o.Kind())
	if err != nil {
		return fmt.Errorf("reviving crate owner: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO crate_owners
			(crate_id, owner_id, created_at, updated_at, created_by, owner_kind, deleted)
		VALUES ($1, $2, NOW(), NOW(), $3, $4, FALSE)`,
		crateID, o.ID(), userID, o.Kind())
	if err != nil {
		return fmt.Errorf("inserting crate owner: %w", err)
	}
	return nil
}

// Remove soft-deletes the owner row, retaining it for audit.
func (r *PostgresRepository) Remove(ctx context.Context, crateID int64, o Owner) error {
	_, err := r.q.Exec(ctx, `
		UPDATE crate_owners
		SET deleted = TRUE, updated_at = NOW()
		WHERE crate_id = $1 AND owner_id = $2 AND owner_kind = $3`,
		crateID, o.ID(), o.Kind())
	if err != nil {
		return fmt.Errorf("removing crate owner: %w", err)
	}
	return nil
}

// CreateTeam inserts or refreshes a team identity row synced from the
// identity provider, reconciled update-then-insert on the login.
func (r *PostgresRepository) CreateTeam(ctx context.Context, login string, info TeamInfo) (*Team, error) {
	var t Team
	err := r.q.QueryRow(ctx, `
		UPDATE teams SET github_id = $1, name = $2, avatar = $3
		WHERE login = $4
		RETURNING id, login, github_id, name, avatar`,
		info.GithubID, info.Name, info.Avatar, login).
		Scan(&t.RowID, &t.TeamLogin, &t.GithubID, &t.Name, &t.Avatar)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("updating team: %w", err)
	}

	err = r.q.QueryRow(ctx, `
		INSERT INTO teams (login, github_id, name, avatar)
		VALUES ($1, $2, $3, $4)
		RETURNING id, login, github_id, name, avatar`,
		login, info.GithubID, info.Name, info.Avatar).
		Scan(&t.RowID, &t.TeamLogin, &t.GithubID, &t.Name, &t.Avatar)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("team %s was created concurrently: %w", login, err)
		}
		return nil, fmt.Errorf("inserting team: %w", err)
	}
	return &t, nil
}
