package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

func yankFixture(owners []owner.Owner) (*VersionHandler, *mockVersionRepo, *mockIndexWriter) {
	crates := &mockCrateRepo{
		findByNameFn: func(ctx context.Context, name string) (*crate.Crate, error) {
			return &crate.Crate{ID: 1, Name: "serde"}, nil
		},
	}
	versions := &mockVersionRepo{
		findByNumFn: func(ctx context.Context, crateID int64, num string) (*version.Version, error) {
			return &version.Version{ID: 11, CrateID: crateID, Num: num}, nil
		},
	}
	ownerRepo := &mockOwnerRepo{
		ownersFn: func(ctx context.Context, crateID int64) ([]owner.Owner, error) {
			return owners, nil
		},
	}
	idx := &mockIndexWriter{}
	h := NewVersionHandler(crates, versions, ownerRepo, &mockResolver{}, idx)
	return h, versions, idx
}

func TestYank_FlipsFlagThenIndex(t *testing.T) {
	jane := user.User{ID: 7, GhLogin: "jane"}
	h, versions, idx := yankFixture([]owner.Owner{owner.UserOwner{User: jane}})

	var dbYanked *bool
	versions.setYankedFn = func(ctx context.Context, id int64, yanked bool) error {
		assert.Empty(t, idx.yanks, "database flag must flip before the index rewrite")
		dbYanked = &yanked
		return nil
	}

	w, r := newRequest(http.MethodDelete, "/api/v1/crates/serde/1.0.0/yank", nil, &jane,
		map[string]string{"name": "serde", "version": "1.0.0"})
	h.Yank(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, dbYanked)
	assert.True(t, *dbYanked)
	assert.Equal(t, []string{"serde#1.0.0"}, idx.yanks)
}

func TestUnyank(t *testing.T) {
	jane := user.User{ID: 7, GhLogin: "jane"}
	h, versions, _ := yankFixture([]owner.Owner{owner.UserOwner{User: jane}})

	var dbYanked *bool
	versions.setYankedFn = func(ctx context.Context, id int64, yanked bool) error {
		dbYanked = &yanked
		return nil
	}

	w, r := newRequest(http.MethodPut, "/api/v1/crates/serde/1.0.0/unyank", nil, &jane,
		map[string]string{"name": "serde", "version": "1.0.0"})
	h.Unyank(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, dbYanked)
	assert.False(t, *dbYanked)
}

func TestYank_RequiresOwnership(t *testing.T) {
	jane := user.User{ID: 7, GhLogin: "jane"}
	other := user.User{ID: 8, GhLogin: "bob"}
	h, versions, idx := yankFixture([]owner.Owner{owner.UserOwner{User: other}})

	versions.setYankedFn = func(ctx context.Context, id int64, yanked bool) error {
		t.Fatal("flag must not change for a non-owner")
		return nil
	}

	w, r := newRequest(http.MethodDelete, "/api/v1/crates/serde/1.0.0/yank", nil, &jane,
		map[string]string{"name": "serde", "version": "1.0.0"})
	h.Yank(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, idx.yanks)
}

func TestYank_TeamMemberAllowed(t *testing.T) {
	jane := user.User{ID: 7, GhLogin: "jane"}
	team := owner.Team{RowID: 3, TeamLogin: "github:acme:maintainers", GithubID: 42}
	h, _, idx := yankFixture([]owner.Owner{owner.TeamOwner{Team: team}})
	h.resolver = &mockResolver{
		isMemberFn: func(ctx context.Context, accessToken string, githubTeamID int64, login string) (bool, error) {
			return githubTeamID == 42 && login == "jane", nil
		},
	}

	w, r := newRequest(http.MethodDelete, "/api/v1/crates/serde/1.0.0/yank", nil, &jane,
		map[string]string{"name": "serde", "version": "1.0.0"})
	h.Yank(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"serde#1.0.0"}, idx.yanks)
}

func TestYank_IndexFailureReportsGateway(t *testing.T) {
	jane := user.User{ID: 7, GhLogin: "jane"}
	h, _, idx := yankFixture([]owner.Owner{owner.UserOwner{User: jane}})
	idx.setYankedFn = func(ctx context.Context, name, vers string, yanked bool) error {
		return errors.New("push rejected")
	}

	w, r := newRequest(http.MethodDelete, "/api/v1/crates/serde/1.0.0/yank", nil, &jane,
		map[string]string{"name": "serde", "version": "1.0.0"})
	h.Yank(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
