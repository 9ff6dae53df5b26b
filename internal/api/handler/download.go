package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/download"
	"github.com/crateport/crateport/internal/storage"
	"github.com/crateport/crateport/internal/version"
)

// DownloadHandler resolves a crate version, bumps its download counter
// and hands the client the artifact location.
type DownloadHandler struct {
	crates    crate.Repository
	versions  version.Repository
	downloads download.Repository
	store     storage.Store
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(crates crate.Repository, versions version.Repository, downloads download.Repository, store storage.Store) *DownloadHandler {
	return &DownloadHandler{crates: crates, versions: versions, downloads: downloads, store: store}
}

// ServeHTTP handles GET /api/v1/crates/{name}/{version}/download.
func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	num := chi.URLParam(r, "version")

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

	// Counting is best effort; a failed bump must not block the
	// download itself.
	if err := h.downloads.Increment(r.Context(), v.ID); err != nil {
		slog.Error("incrementing downloads", "crate", name, "version", num, "error", err)
	}

	url := h.store.URL(c.ArtifactKey(v.Num))
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		response.OK(w, struct {
			URL string `json:"url"`
		}{URL: url})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
