package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/publish"
)

// PublishHandler accepts new crate uploads.
type PublishHandler struct {
	svc           *publish.Service
	maxUploadSize int64
}

// NewPublishHandler creates a new PublishHandler.
func NewPublishHandler(svc *publish.Service, maxUploadSize int64) *PublishHandler {
	return &PublishHandler{svc: svc, maxUploadSize: maxUploadSize}
}

// ServeHTTP handles PUT /api/v1/crates/new.
func (h *PublishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())

	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	env, err := publish.ReadEnvelope(body, h.maxUploadSize)
	if err != nil {
		writePublishError(w, err)
		return
	}

	res, err := h.svc.Publish(r.Context(), u, env)
	if err != nil {
		writePublishError(w, err)
		return
	}

	response.OK(w, struct {
		Crate CrateView `json:"crate"`
	}{Crate: crateView(res.Crate)})
}

// writePublishError maps pipeline errors onto wire responses: metadata
// problems as aggregated 400 lists, name and version conflicts as 409,
// rights failures as 403, downstream store failures as 502.
func writePublishError(w http.ResponseWriter, err error) {
	var (
		validation *publish.ValidationError
		missing    *publish.MissingFieldsError
		prevNamed  *publish.PreviouslyNamedError
		unknown    *publish.UnknownCrateError
		duplicate  *publish.DuplicateVersionError
		downstream *publish.DownstreamError
	)

	switch {
	case errors.As(err, &validation):
		response.Errs(w, http.StatusBadRequest, validation.Problems...)
	case errors.As(err, &missing):
		response.Errs(w, http.StatusBadRequest, missing.Error())
	case errors.As(err, &prevNamed):
		response.Errs(w, http.StatusConflict, prevNamed.Error())
	case errors.As(err, &unknown):
		response.Errs(w, http.StatusBadRequest, unknown.Error())
	case errors.As(err, &duplicate):
		response.Errs(w, http.StatusConflict, duplicate.Error())
	case errors.Is(err, crate.ErrNameTaken), errors.Is(err, publish.ErrNotOwner):
		response.Errs(w, http.StatusConflict, "crate name has already been claimed by another user")
	case errors.Is(err, crate.ErrReservedName):
		response.Errs(w, http.StatusBadRequest, crate.ErrReservedName.Error())
	case errors.As(err, &downstream):
		slog.Error("publish downstream failure", "stage", downstream.Stage, "error", downstream.Err)
		response.Errs(w, http.StatusBadGateway, "failed to store the crate, please try again later")
	default:
		slog.Error("publish failed", "error", err)
		response.Internal(w)
	}
}
