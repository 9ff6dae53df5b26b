package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/version"
)

// CrateHandler serves the crate read surface and the follow endpoints.
type CrateHandler struct {
	crates   crate.Repository
	versions version.Repository
}

// NewCrateHandler creates a new CrateHandler.
func NewCrateHandler(crates crate.Repository, versions version.Repository) *CrateHandler {
	return &CrateHandler{crates: crates, versions: versions}
}

// Show handles GET /api/v1/crates/{name}: the crate row with its
// versions and keywords.
func (h *CrateHandler) Show(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}

	vs, err := h.versions.ByCrate(r.Context(), c.ID)
	if err != nil {
		slog.Error("listing versions", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}

	views := make([]VersionView, 0, len(vs))
	for i := range vs {
		views = append(views, versionView(c.Name, &vs[i]))
	}
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	response.OK(w, struct {
		Crate    CrateView     `json:"crate"`
		Versions []VersionView `json:"versions"`
		Keywords []string      `json:"keywords"`
	}{Crate: crateView(c), Versions: views, Keywords: keywords})
}

// Versions handles GET /api/v1/crates/{name}/versions.
func (h *CrateHandler) Versions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}

	vs, err := h.versions.ByCrate(r.Context(), c.ID)
	if err != nil {
		slog.Error("listing versions", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}

	views := make([]VersionView, 0, len(vs))
	for i := range vs {
		views = append(views, versionView(c.Name, &vs[i]))
	}
	response.OK(w, struct {
		Versions []VersionView `json:"versions"`
	}{Versions: views})
}

// Follow handles PUT /api/v1/crates/{name}/follow.
func (h *CrateHandler) Follow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}
	u := middleware.GetUser(r.Context())
	if err := h.crates.Follow(r.Context(), c.ID, u.ID); err != nil {
		slog.Error("following crate", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}
	response.OK(w, okBody(true))
}

// Unfollow handles DELETE /api/v1/crates/{name}/follow.
func (h *CrateHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}
	u := middleware.GetUser(r.Context())
	if err := h.crates.Unfollow(r.Context(), c.ID, u.ID); err != nil {
		slog.Error("unfollowing crate", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}
	response.OK(w, okBody(true))
}

// Following handles GET /api/v1/crates/{name}/following.
func (h *CrateHandler) Following(w http.ResponseWriter, r *http.Request) {
	c, ok := h.findCrate(w, r)
	if !ok {
		return
	}
	u := middleware.GetUser(r.Context())
	following, err := h.crates.IsFollowing(r.Context(), c.ID, u.ID)
	if err != nil {
		slog.Error("checking follow", "crate", c.Name, "error", err)
		response.Internal(w)
		return
	}
	response.OK(w, struct {
		Following bool `json:"following"`
	}{Following: following})
}

func (h *CrateHandler) findCrate(w http.ResponseWriter, r *http.Request) (*crate.Crate, bool) {
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

type okPayload struct {
	OK bool `json:"ok"`
}

func okBody(ok bool) okPayload {
	return okPayload{OK: ok}
}
