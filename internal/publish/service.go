// Package publish orchestrates the crate publication pipeline: metadata
// validation, reconciliation against the database, artifact upload, and
// the index append, with compensating rollback of the artifact if the
// index write fails.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/index"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/storage"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

// maxVersionSentinel is the recorded max version of a crate that has
// never had a version published.
const maxVersionSentinel = "0.0.0"

// Result is a successful publish: the crate row as left by the
// pipeline and the freshly inserted version.
type Result struct {
	Crate   *crate.Crate
	Version *version.Version
}

// Service runs the publication pipeline.
type Service struct {
	meta     MetadataStore
	versions version.Repository
	store    storage.Store
	idx      index.Writer
	resolver owner.MembershipResolver
}

// NewService creates a publish Service. versions must be a pool-scoped
// repository: it records checksums after the publish transaction has
// committed.
func NewService(meta MetadataStore, versions version.Repository, store storage.Store, idx index.Writer, resolver owner.MembershipResolver) *Service {
	return &Service{meta: meta, versions: versions, store: store, idx: idx, resolver: resolver}
}

// Publish runs one publish request through the pipeline.
//
// Stages 1-6 (validation, crate reconciliation, rights, version insert,
// dependency resolution, keywords) run inside a single database
// transaction. The artifact upload and index append run after that
// transaction commits, because they touch non-transactional systems: a
// failure there leaves the committed rows in place, deletes the
// uploaded artifact via the compensation guard, and reports the publish
// as failed for an operator to reconcile.
func (s *Service) Publish(ctx context.Context, u *user.User, env *Envelope) (*Result, error) {
	meta := &env.Metadata

	vers, err := validate(meta)
	if err != nil {
		return nil, err
	}

	tx, err := s.meta.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	c, v, deps, err := s.reconcile(ctx, tx, u, meta, vers)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	cksum, err := s.uploadArtifact(ctx, c, meta.Vers, env)
	if err != nil {
		return nil, err
	}

	// From here until the index push succeeds, a failure must take the
	// just-uploaded artifact down with it.
	key := c.ArtifactKey(meta.Vers)
	guardArmed := true
	defer func() {
		if guardArmed {
			if derr := s.store.Delete(ctx, key); derr != nil {
				slog.Error("compensation guard failed to delete artifact", "key", key, "error", derr)
			}
		}
	}()

	if err := s.versions.SetChecksum(ctx, v.ID, cksum); err != nil {
		return nil, &DownstreamError{Stage: "checksum record", Err: err}
	}
	v.Checksum = cksum

	entry := index.Entry{
		Name:     c.Name,
		Vers:     meta.Vers,
		Deps:     deps,
		Cksum:    cksum,
		Features: v.Features,
		Yanked:   false,
	}
	if err := s.idx.Add(ctx, entry); err != nil {
		return nil, &DownstreamError{Stage: "index append", Err: err}
	}

	// Committed: the artifact stays.
	guardArmed = false

	slog.Info("published crate", "crate", c.Name, "version", meta.Vers, "user", u.GhLogin)
	return &Result{Crate: c, Version: v}, nil
}

// reconcile runs the in-transaction stages: crate row reconciliation,
// rights check, version insert, dependency resolution and keyword
// association. It returns the dependency summaries for the index entry.
func (s *Service) reconcile(ctx context.Context, tx MetadataTx, u *user.User, meta *Metadata, vers *semver.Version) (*crate.Crate, *version.Version, []index.DependencyEntry, error) {
	crates := tx.Crates()

	c, err := crates.FindOrInsert(ctx, crate.NewCrate{
		Name:          meta.Name,
		UserID:        u.ID,
		Description:   meta.Description,
		Homepage:      meta.Homepage,
		Documentation: meta.Documentation,
		Readme:        meta.Readme,
		License:       meta.License,
		Repository:    meta.Repository,
		Keywords:      meta.Keywords,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	// A canonical-name hit with a different spelling is a rename
	// attempt, not a re-publish.
	if c.Name != meta.Name {
		return nil, nil, nil, &PreviouslyNamedError{Name: c.Name}
	}

	owners, err := tx.Owners().Owners(ctx, c.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	rights, err := owner.RightsOf(ctx, s.resolver, owners, u)
	if err != nil {
		return nil, nil, nil, err
	}
	if rights < owner.RightsPublish {
		return nil, nil, nil, ErrNotOwner
	}

	versions := tx.Versions()
	if _, err := versions.FindByNum(ctx, c.ID, meta.Vers); err == nil {
		return nil, nil, nil, &DuplicateVersionError{Vers: meta.Vers}
	} else if !errors.Is(err, version.ErrNotFound) {
		return nil, nil, nil, err
	}

	v, err := versions.Insert(ctx, c.ID, meta.Vers, meta.Features, "")
	if err != nil {
		if errors.Is(err, version.ErrDuplicateVersion) {
			return nil, nil, nil, &DuplicateVersionError{Vers: meta.Vers}
		}
		return nil, nil, nil, err
	}

	// Every publish rewrites the max version, bump or not, so the
	// crate's updated_at moves even when an older version lands.
	if greaterThanMax(vers, c.MaxVersion) {
		c.MaxVersion = meta.Vers
	}
	if err := crates.SetMaxVersion(ctx, c.ID, c.MaxVersion); err != nil {
		return nil, nil, nil, err
	}

	deps, err := s.resolveDependencies(ctx, tx, v, meta.Deps)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := tx.Keywords().UpdateCrate(ctx, c.ID, meta.Keywords); err != nil {
		return nil, nil, nil, err
	}

	return c, v, deps, nil
}

// resolveDependencies looks up every declared dependency by canonical
// name and records it; an unknown name aborts the publish.
func (s *Service) resolveDependencies(ctx context.Context, tx MetadataTx, v *version.Version, decls []DependencyDecl) ([]index.DependencyEntry, error) {
	crates := tx.Crates()
	versions := tx.Versions()

	// Index lines always carry a deps array, even when empty.
	entries := []index.DependencyEntry{}
	for _, decl := range decls {
		target, err := crates.FindByName(ctx, decl.Name)
		if err != nil {
			if errors.Is(err, crate.ErrNotFound) {
				return nil, &UnknownCrateError{Name: decl.Name}
			}
			return nil, err
		}

		kind := "normal"
		if decl.Kind != nil && *decl.Kind != "" {
			kind = *decl.Kind
		}

		dep := &version.Dependency{
			VersionID:       v.ID,
			CrateID:         target.ID,
			Req:             decl.VersionReq,
			Optional:        decl.Optional,
			DefaultFeatures: decl.DefaultFeatures,
			Features:        decl.Features,
			Target:          decl.Target,
			Kind:            kind,
		}
		if err := versions.InsertDependency(ctx, dep); err != nil {
			return nil, err
		}

		entries = append(entries, index.DependencyEntry{
			Name:            target.Name,
			Req:             decl.VersionReq,
			Features:        decl.Features,
			Optional:        decl.Optional,
			DefaultFeatures: decl.DefaultFeatures,
			Target:          decl.Target,
			Kind:            kind,
		})
	}
	return entries, nil
}

// uploadArtifact streams the archive to the store while hashing it,
// then checks the byte count against the declared length.
func (s *Service) uploadArtifact(ctx context.Context, c *crate.Crate, vers string, env *Envelope) (string, error) {
	key := c.ArtifactKey(vers)
	hr := newHashingReader(env.Tarball)

	if err := s.store.Put(ctx, key, hr, "application/x-tar", env.TarballLen); err != nil {
		return "", &DownstreamError{Stage: "artifact upload", Err: err}
	}
	if hr.Count() != env.TarballLen {
		// The store acknowledged fewer bytes than declared; remove the
		// truncated object rather than leaving it downloadable.
		if derr := s.store.Delete(ctx, key); derr != nil {
			slog.Error("failed to delete truncated artifact", "key", key, "error", derr)
		}
		return "", &DownstreamError{
			Stage: "artifact upload",
			Err:   fmt.Errorf("archive was %d bytes, expected %d", hr.Count(), env.TarballLen),
		}
	}
	return hr.Sum(), nil
}

// greaterThanMax applies semver precedence against the recorded max,
// treating the sentinel as always beaten.
func greaterThanMax(vers *semver.Version, recorded string) bool {
	if recorded == maxVersionSentinel {
		return true
	}
	maxVers, err := semver.NewVersion(recorded)
	if err != nil {
		// An unparseable recorded max should never happen; take the new
		// version as the max rather than failing the publish.
		return true
	}
	return vers.GreaterThan(maxVers)
}
