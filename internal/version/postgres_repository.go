package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5"

	"github.com/crateport/crateport/internal/database"
)

const versionColumns = `id, crate_id, num, updated_at, created_at, downloads,
	       features, yanked, checksum`

// PostgresRepository implements Repository over a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// FindByNum resolves the version of a crate by exact version string.
func (r *PostgresRepository) FindByNum(ctx context.Context, crateID int64, num string) (*Version, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM versions
		WHERE crate_id = $1 AND num = $2`, versionColumns)
	return r.scanOne(ctx, query, crateID, num)
}

// ByCrate returns all versions of a crate, newest semver first. Versions
// that predate strict parsing sort last in string order.
func (r *PostgresRepository) ByCrate(ctx context.Context, crateID int64) ([]Version, error) {
	query := fmt.Sprintf(`SELECT %s FROM versions WHERE crate_id = $1`, versionColumns)

	rows, err := r.q.Query(ctx, query, crateID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := scanVersion(rows, &v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating version rows: %w", err)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		a, errA := semver.NewVersion(versions[i].Num)
		b, errB := semver.NewVersion(versions[j].Num)
		if errA != nil || errB != nil {
			return versions[i].Num > versions[j].Num
		}
		return a.GreaterThan(b)
	})
	return versions, nil
}

// Insert creates a version row.
func (r *PostgresRepository) Insert(ctx context.Context, crateID int64, num string, features map[string][]string, checksum string) (*Version, error) {
	if features == nil {
		features = map[string][]string{}
	}
	featureJSON, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO versions
			(crate_id, num, updated_at, created_at, downloads, features, yanked, checksum)
		VALUES ($1, $2, NOW(), NOW(), 0, $3, FALSE, $4)
		RETURNING %s`, versionColumns)

	v, err := r.scanOne(ctx, query, crateID, num, string(featureJSON), checksum)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateVersion
		}
		return nil, err
	}
	return v, nil
}

// SetYanked flips the yanked flag.
func (r *PostgresRepository) SetYanked(ctx context.Context, id int64, yanked bool) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE versions SET yanked = $1, updated_at = NOW()
		WHERE id = $2`, yanked, id)
	if err != nil {
		return fmt.Errorf("updating yanked flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetChecksum records the artifact digest computed during upload.
func (r *PostgresRepository) SetChecksum(ctx context.Context, id int64, checksum string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE versions SET checksum = $1 WHERE id = $2`, checksum, id)
	if err != nil {
		return fmt.Errorf("updating version checksum: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertDependency records one declared dependency of a version.
func (r *PostgresRepository) InsertDependency(ctx context.Context, d *Dependency) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO dependencies
			(version_id, crate_id, req, optional, default_features, features, target, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		d.VersionID, d.CrateID, d.Req, d.Optional, d.DefaultFeatures,
		strings.Join(d.Features, ","), d.Target, d.Kind).
		Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("inserting dependency: %w", err)
	}
	return nil
}

// Dependencies returns the declared dependencies of a version.
func (r *PostgresRepository) Dependencies(ctx context.Context, versionID int64) ([]Dependency, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, version_id, crate_id, req, optional, default_features,
		       features, target, kind
		FROM dependencies
		WHERE version_id = $1
		ORDER BY id ASC`, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying dependencies: %w", err)
	}
	defer rows.Close()

	var deps []Dependency
	for rows.Next() {
		var d Dependency
		var features string
		err := rows.Scan(&d.ID, &d.VersionID, &d.CrateID, &d.Req, &d.Optional,
			&d.DefaultFeatures, &features, &d.Target, &d.Kind)
		if err != nil {
			return nil, fmt.Errorf("scanning dependency row: %w", err)
		}
		if features != "" {
			d.Features = strings.Split(features, ",")
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependency rows: %w", err)
	}
	return deps, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*Version, error) {
	var v Version
	err := scanVersion(r.q.QueryRow(ctx, query, args...), &v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner, v *Version) error {
	var featureJSON string
	err := row.Scan(
		&v.ID, &v.CrateID, &v.Num, &v.UpdatedAt, &v.CreatedAt, &v.Downloads,
		&featureJSON, &v.Yanked, &v.Checksum,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || database.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("scanning version row: %w", err)
	}
	if featureJSON == "" {
		featureJSON = "{}"
	}
	if err := json.Unmarshal([]byte(featureJSON), &v.Features); err != nil {
		return fmt.Errorf("decoding features: %w", err)
	}
	return nil
}
