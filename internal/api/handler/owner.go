package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/user"
)

// OwnerHandler serves the crate ownership endpoints.
type OwnerHandler struct {
	crates   crate.Repository
	owners   owner.Repository
	resolver owner.MembershipResolver
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(crates crate.Repository, owners owner.Repository, resolver owner.MembershipResolver) *OwnerHandler {
	return &OwnerHandler{crates: crates, owners: owners, resolver: resolver}
}

// ownerChangeRequest is the body of owner add and remove requests.
// "owners" is the primary key; "users" is accepted as a legacy alias.
type ownerChangeRequest struct {
	Owners []string `json:"owners"`
	Users  []string `json:"users"`
}

func (req *ownerChangeRequest) logins() []string {
	if len(req.Owners) > 0 {
		return req.Owners
	}
	return req.Users
}

// List handles GET /api/v1/crates/{name}/owners.
func (h *OwnerHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}

	owners, err := h.owners.Owners(r.Context(), c.ID)
	if err != nil {
		slog.Error("listing owners", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}

	views := make([]OwnerView, 0, len(owners))
	for _, o := range owners {
		views = append(views, ownerView(o))
	}
	response.OK(w, struct {
		Users []OwnerView `json:"users"`
	}{Users: views})
}

// Add handles PUT /api/v1/crates/{name}/owners.
func (h *OwnerHandler) Add(w http.ResponseWriter, r *http.Request) {
	c, req, u, ok := h.ownerChange(w, r)
	if !ok {
		return
	}

	for _, login := range req.logins() {
		var o owner.Owner
		var err error
		if strings.Contains(login, ":") {
			o, err = h.resolveTeam(w, r, u, login)
			if err != nil {
				return
			}
		} else {
			o, err = h.owners.FindByLogin(r.Context(), login)
			if err != nil {
				if errors.Is(err, owner.ErrOwnerNotFound) {
					response.Errs(w, http.StatusNotFound, "could not find user with login `"+login+"`")
					return
				}
				slog.Error("finding owner", "login", login, "error", err)
				response.Internal(w)
				return
			}
		}

		if err := h.owners.Add(r.Context(), c.ID, o, u.ID); err != nil {
			slog.Error("adding owner", "crate", c.Name, "login", login, "error", err)
			response.Internal(w)
			return
		}
	}

	response.OK(w, okBody(true))
}

// Remove handles DELETE /api/v1/crates/{name}/owners.
func (h *OwnerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	c, req, u, ok := h.ownerChange(w, r)
	if !ok {
		return
	}

	for _, login := range req.logins() {
		if login == u.GhLogin {
			response.Errs(w, http.StatusBadRequest, "cannot remove yourself as an owner")
			return
		}

		o, err := h.owners.FindByLogin(r.Context(), login)
		if err != nil {
			if errors.Is(err, owner.ErrOwnerNotFound) {
				response.Errs(w, http.StatusNotFound, "could not find owner with login `"+login+"`")
				return
			}
			slog.Error("finding owner", "login", login, "error", err)
			response.Internal(w)
			return
		}

		if err := h.owners.Remove(r.Context(), c.ID, o); err != nil {
			if errors.Is(err, owner.ErrOwnerNotFound) {
				response.Errs(w, http.StatusNotFound, "`"+login+"` is not an owner of this crate")
				return
			}
			slog.Error("removing owner", "crate", c.Name, "login", login, "error", err)
			response.Internal(w)
			return
		}
	}

	response.OK(w, okBody(true))
}

// ownerChange runs the shared preamble of owner mutations: crate lookup,
// body decode and the full-rights check on the requester.
func (h *OwnerHandler) ownerChange(w http.ResponseWriter, r *http.Request) (*crate.Crate, *ownerChangeRequest, *user.User, bool) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return nil, nil, nil, false
	}
	u := middleware.GetUser(r.Context())

	var req ownerChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.logins()) == 0 {
		response.Errs(w, http.StatusBadRequest, "invalid json request")
		return nil, nil, nil, false
	}

	owners, err := h.owners.Owners(r.Context(), c.ID)
	if err != nil {
		slog.Error("listing owners", "crate", c.Name, "error", err)
		response.Internal(w)
		return nil, nil, nil, false
	}
	rights, err := owner.RightsOf(r.Context(), h.resolver, owners, u)
	if err != nil {
		slog.Error("resolving rights", "crate", c.Name, "user", u.GhLogin, "error", err)
		response.Internal(w)
		return nil, nil, nil, false
	}
	if rights < owner.RightsFull {
		response.Errs(w, http.StatusForbidden, "only owners have permission to modify owners")
		return nil, nil, nil, false
	}

	return c, &req, u, true
}

// resolveTeam syncs a github:org:team login from the identity provider
// and enforces that the requester is a member of that team. It writes
// the error response itself; a non-nil error just tells the caller to
// stop.
func (h *OwnerHandler) resolveTeam(w http.ResponseWriter, r *http.Request, u *user.User, login string) (owner.Owner, error) {
	org, team, err := owner.ParseTeamLogin(login)
	if err != nil {
		response.Errs(w, http.StatusBadRequest, err.Error())
		return nil, err
	}

	info, err := h.resolver.FindTeam(r.Context(), u.GhAccessToken, org, team)
	if err != nil {
		if errors.Is(err, owner.ErrTeamNotFound) {
			response.Errs(w, http.StatusNotFound, "could not find the github team "+org+"/"+team)
			return nil, err
		}
		slog.Error("finding team", "login", login, "error", err)
		response.Internal(w)
		return nil, err
	}

	member, err := h.resolver.IsTeamMember(r.Context(), u.GhAccessToken, info.GithubID, u.GhLogin)
	if err != nil {
		slog.Error("checking team membership", "login", login, "error", err)
		response.Internal(w)
		return nil, err
	}
	if !member {
		err := errors.New("not a member")
		response.Errs(w, http.StatusForbidden, "only members of a team can add it as an owner")
		return nil, err
	}

	t, err := h.owners.CreateTeam(r.Context(), login, *info)
	if err != nil {
		slog.Error("creating team", "login", login, "error", err)
		response.Internal(w)
		return nil, err
	}
	return owner.TeamOwner{Team: *t}, nil
}

func (h *OwnerHandler) findCrate(w http.ResponseWriter, r *http.Request) (*crate.Crate, bool) {
	name := chi.URLParam(r, "name")
	c, err := h.crates.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, crate.ErrNotFound) {
			response.Errs(w, http.StatusNotFound, "crate `"+name+"` does not exist")
			return nil, false
		}
		slog.Error("finding crate", "crate", name, "error", err)
		response.Internal(w)
		return nil, false
	}
	return c, true
}
