// Package download implements best-effort download accounting: one
// counter row per (version, day), incremented on every download request.
package download

import (
	"context"
	"fmt"

	"github.com/crateport/crateport/internal/database"
)

// Repository provides access to the version_downloads table.
type Repository interface {
	// Increment bumps today's counter row for a version, inserting a
	// fresh row initialized to one when no row exists yet.
	Increment(ctx context.Context, versionID int64) error
}

// PostgresRepository implements Repository over a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given querier.
func NewRepository(q database.Querier) Repository {
	return &PostgresRepository{q: q}
}

// Increment bumps today's counter. Deliberately two statements rather
// than a single upsert: two racing requests can both see zero updated
// rows and insert duplicate rows for the day, or one increment can be
// lost. The periodic aggregation job reconciles; the counters only need
// to be non-negative and present after at least one successful request.
func (r *PostgresRepository) Increment(ctx context.Context, versionID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE version_downloads
		SET downloads = downloads + 1
		WHERE version_id = $1 AND date = CURRENT_DATE`, versionID)
	if err != nil {
		return fmt.Errorf("incrementing version downloads: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO version_downloads (version_id, downloads, counted, date, processed)
		VALUES ($1, 1, 0, CURRENT_DATE, FALSE)`, versionID)
	if err != nil {
		return fmt.Errorf("inserting version download row: %w", err)
	}
	return nil
}
