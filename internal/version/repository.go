package version

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no version matches the lookup.
var ErrNotFound = errors.New("version not found")

// ErrDuplicateVersion is returned when the (crate, num) pair already
// exists; republishing a version number is rejected.
var ErrDuplicateVersion = errors.New("crate version is already uploaded")

// Repository provides access to the versions and dependencies tables.
type Repository interface {
	// FindByNum resolves the version of a crate by exact version string.
	FindByNum(ctx context.Context, crateID int64, num string) (*Version, error)

	// ByCrate returns all versions of a crate, newest semver first.
	ByCrate(ctx context.Context, crateID int64) ([]Version, error)

	// Insert creates a version row. A duplicate (crate, num) pair is
	// reported as ErrDuplicateVersion.
	Insert(ctx context.Context, crateID int64, num string, features map[string][]string, checksum string) (*Version, error)

	// SetYanked flips the yanked flag.
	SetYanked(ctx context.Context, id int64, yanked bool) error

	// SetChecksum records the artifact digest computed during upload.
	// The upload happens after the publish transaction commits, so this
	// runs as its own statement.
	SetChecksum(ctx context.Context, id int64, checksum string) error

	// InsertDependency records one declared dependency of a version.
	InsertDependency(ctx context.Context, d *Dependency) error

	// Dependencies returns the declared dependencies of a version.
	Dependencies(ctx context.Context, versionID int64) ([]Dependency, error)
}
