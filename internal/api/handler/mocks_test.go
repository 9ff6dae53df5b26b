package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/index"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

// --- Mock Crate Repository ---

type mockCrateRepo struct {
	findByNameFn  func(ctx context.Context, name string) (*crate.Crate, error)
	followFn      func(ctx context.Context, crateID, userID int64) error
	unfollowFn    func(ctx context.Context, crateID, userID int64) error
	isFollowingFn func(ctx context.Context, crateID, userID int64) (bool, error)
}

func (m *mockCrateRepo) FindByName(ctx context.Context, name string) (*crate.Crate, error) {
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, crate.ErrNotFound
}

func (m *mockCrateRepo) FindOrInsert(ctx context.Context, nc crate.NewCrate) (*crate.Crate, error) {
	return nil, crate.ErrNotFound
}

func (m *mockCrateRepo) SetMaxVersion(ctx context.Context, id int64, maxVersion string) error {
	return nil
}

func (m *mockCrateRepo) Follow(ctx context.Context, crateID, userID int64) error {
	if m.followFn != nil {
		return m.followFn(ctx, crateID, userID)
	}
	return nil
}

func (m *mockCrateRepo) Unfollow(ctx context.Context, crateID, userID int64) error {
	if m.unfollowFn != nil {
		return m.unfollowFn(ctx, crateID, userID)
	}
	return nil
}

func (m *mockCrateRepo) IsFollowing(ctx context.Context, crateID, userID int64) (bool, error) {
	if m.isFollowingFn != nil {
		return m.isFollowingFn(ctx, crateID, userID)
	}
	return false, nil
}

// --- Mock Version Repository ---

type mockVersionRepo struct {
	findByNumFn func(ctx context.Context, crateID int64, num string) (*version.Version, error)
	byCrateFn   func(ctx context.Context, crateID int64) ([]version.Version, error)
	setYankedFn func(ctx context.Context, id int64, yanked bool) error
}

func (m *mockVersionRepo) FindByNum(ctx context.Context, crateID int64, num string) (*version.Version, error) {
	if m.findByNumFn != nil {
		return m.findByNumFn(ctx, crateID, num)
	}
	return nil, version.ErrNotFound
}

func (m *mockVersionRepo) ByCrate(ctx context.Context, crateID int64) ([]version.Version, error) {
	if m.byCrateFn != nil {
		return m.byCrateFn(ctx, crateID)
	}
	return nil, nil
}

func (m *mockVersionRepo) Insert(ctx context.Context, crateID int64, num string, features map[string][]string, checksum string) (*version.Version, error) {
	return nil, nil
}

func (m *mockVersionRepo) SetYanked(ctx context.Context, id int64, yanked bool) error {
	if m.setYankedFn != nil {
		return m.setYankedFn(ctx, id, yanked)
	}
	return nil
}

func (m *mockVersionRepo) SetChecksum(ctx context.Context, id int64, checksum string) error {
	return nil
}

func (m *mockVersionRepo) InsertDependency(ctx context.Context, d *version.Dependency) error {
	return nil
}

func (m *mockVersionRepo) Dependencies(ctx context.Context, versionID int64) ([]version.Dependency, error) {
	return nil, nil
}

// --- Mock Download Repository ---

type mockDownloadRepo struct {
	incrementFn func(ctx context.Context, versionID int64) error
	incremented []int64
}

func (m *mockDownloadRepo) Increment(ctx context.Context, versionID int64) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, versionID)
	}
	m.incremented = append(m.incremented, versionID)
	return nil
}

// --- Mock Owner Repository ---

type mockOwnerRepo struct {
	ownersFn      func(ctx context.Context, crateID int64) ([]owner.Owner, error)
	findByLoginFn func(ctx context.Context, login string) (owner.Owner, error)
	addFn         func(ctx context.Context, crateID int64, o owner.Owner, userID int64) error
	removeFn      func(ctx context.Context, crateID int64, o owner.Owner) error
}

func (m *mockOwnerRepo) Owners(ctx context.Context, crateID int64) ([]owner.Owner, error) {
	if m.ownersFn != nil {
		return m.ownersFn(ctx, crateID)
	}
	return nil, nil
}

func (m *mockOwnerRepo) FindByLogin(ctx context.Context, login string) (owner.Owner, error) {
	if m.findByLoginFn != nil {
		return m.findByLoginFn(ctx, login)
	}
	return nil, owner.ErrOwnerNotFound
}

func (m *mockOwnerRepo) Add(ctx context.Context, crateID int64, o owner.Owner, userID int64) error {
	if m.addFn != nil {
		return m.addFn(ctx, crateID, o, userID)
	}
	return nil
}

func (m *mockOwnerRepo) Remove(ctx context.Context, crateID int64, o owner.Owner) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, crateID, o)
	}
	return nil
}

func (m *mockOwnerRepo) CreateTeam(ctx context.Context, login string, info owner.TeamInfo) (*owner.Team, error) {
	return &owner.Team{RowID: 1, TeamLogin: login, GithubID: info.GithubID}, nil
}

// --- Mock Resolver, Store, Index ---

type mockResolver struct {
	findTeamFn func(ctx context.Context, accessToken, org, team string) (*owner.TeamInfo, error)
	isMemberFn func(ctx context.Context, accessToken string, githubTeamID int64, login string) (bool, error)
}

func (m *mockResolver) FindTeam(ctx context.Context, accessToken, org, team string) (*owner.TeamInfo, error) {
	if m.findTeamFn != nil {
		return m.findTeamFn(ctx, accessToken, org, team)
	}
	return nil, owner.ErrTeamNotFound
}

func (m *mockResolver) IsTeamMember(ctx context.Context, accessToken string, githubTeamID int64, login string) (bool, error) {
	if m.isMemberFn != nil {
		return m.isMemberFn(ctx, accessToken, githubTeamID, login)
	}
	return false, nil
}

type mockStore struct {
	urlFn func(key string) string
}

func (m *mockStore) Put(ctx context.Context, key string, body io.Reader, contentType string, length int64) error {
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error { return nil }

func (m *mockStore) URL(key string) string {
	if m.urlFn != nil {
		return m.urlFn(key)
	}
	return "https://crates.example.com" + key
}

type mockIndexWriter struct {
	setYankedFn func(ctx context.Context, name, vers string, yanked bool) error
	yanks       []string
}

func (m *mockIndexWriter) Add(ctx context.Context, e index.Entry) error { return nil }

func (m *mockIndexWriter) SetYanked(ctx context.Context, name, vers string, yanked bool) error {
	if m.setYankedFn != nil {
		return m.setYankedFn(ctx, name, vers, yanked)
	}
	m.yanks = append(m.yanks, name+"#"+vers)
	return nil
}

// --- Request Helpers ---

// newRequest builds a request with chi URL params and optionally an
// authenticated user on the context.
func newRequest(method, target string, body io.Reader, u *user.User, params map[string]string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(method, target, body)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if u != nil {
		ctx = middleware.WithUser(ctx, u)
	}

	return httptest.NewRecorder(), req.WithContext(ctx)
}
