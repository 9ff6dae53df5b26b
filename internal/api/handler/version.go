package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/index"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/version"
)

// VersionHandler serves yank and unyank. Both flip the database flag
// first and then rewrite the matching index line.
type VersionHandler struct {
	crates   crate.Repository
	versions version.Repository
	owners   owner.Repository
	resolver owner.MembershipResolver
	idx      index.Writer
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(crates crate.Repository, versions version.Repository, owners owner.Repository, resolver owner.MembershipResolver, idx index.Writer) *VersionHandler {
	return &VersionHandler{crates: crates, versions: versions, owners: owners, resolver: resolver, idx: idx}
}

// Yank handles DELETE /api/v1/crates/{name}/{version}/yank.
func (h *VersionHandler) Yank(w http.ResponseWriter, r *http.Request) {
	h.setYanked(w, r, true)
}

// Unyank handles PUT /api/v1/crates/{name}/{version}/unyank.
func (h *VersionHandler) Unyank(w http.ResponseWriter, r *http.Request) {
	h.setYanked(w, r, false)
}

func (h *VersionHandler) setYanked(w http.ResponseWriter, r *http.Request, yanked bool) {
	name := chi.URLParam(r, "name")
	num := chi.URLParam(r, "version")
	u := middleware.GetUser(r.Context())

	c, err := h.crates.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, crate.ErrNotFound) {
			response.Errs(w, http.StatusNotFound, "crate `"+name+"` does not exist")
			return
		}
		slog.Error("finding crate", "crate", name, "error", err)
		response.Internal(w)
		return
	}

	v, err := h.versions.FindByNum(r.Context(), c.ID, num)
	if err != nil {
		if errors.Is(err, version.ErrNotFound) {
			response.Errs(w, http.StatusNotFound, "crate `"+name+"` does not have a version `"+num+"`")
			return
		}
		slog.Error("finding version", "crate", name, "version", num, "error", err)
		response.Internal(w)
		return
	}

	owners, err := h.owners.Owners(r.Context(), c.ID)
	if err != nil {
		slog.Error("listing owners", "crate", name, "error", err)
		response.Internal(w)
		return
	}
	rights, err := owner.RightsOf(r.Context(), h.resolver, owners, u)
	if err != nil {
		slog.Error("resolving rights", "crate", name, "user", u.GhLogin, "error", err)
		response.Internal(w)
		return
	}
	if rights < owner.RightsPublish {
		response.Errs(w, http.StatusForbidden, "must already be an owner to yank a crate")
		return
	}

	if err := h.versions.SetYanked(r.Context(), v.ID, yanked); err != nil {
		slog.Error("setting yanked flag", "crate", name, "version", num, "error", err)
		response.Internal(w)
		return
	}

	if err := h.idx.SetYanked(r.Context(), c.Name, v.Num, yanked); err != nil {
		// The database flag is already flipped; the index will catch up
		// on the next successful rewrite of this line.
		slog.Error("rewriting index line", "crate", name, "version", num, "error", err)
		response.Errs(w, http.StatusBadGateway, "failed to update the index, please try again later")
		return
	}

	response.OK(w, okBody(true))
}
