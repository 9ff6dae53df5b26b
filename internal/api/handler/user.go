package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/auth"
	"github.com/crateport/crateport/internal/github"
	"github.com/crateport/crateport/internal/user"
)

// UserHandler serves login and the authenticated user endpoints.
type UserHandler struct {
	users user.Repository
	auth  *auth.Service
	gh    *github.Client
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users user.Repository, authService *auth.Service, gh *github.Client) *UserHandler {
	return &UserHandler{users: users, auth: authService, gh: gh}
}

// Authorize handles GET /api/v1/authorize: it exchanges the OAuth code
// for an access token, reconciles the user row by login and issues a
// fresh registry API token.
func (h *UserHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.Errs(w, http.StatusBadRequest, "missing oauth code")
		return
	}

	accessToken, err := h.gh.ExchangeCode(r.Context(), code)
	if err != nil {
		h.writeGithubError(w, err)
		return
	}

	profile, err := h.gh.CurrentUser(r.Context(), accessToken)
	if err != nil {
		h.writeGithubError(w, err)
		return
	}

	rawToken, prefix, hash, err := h.auth.GenerateToken()
	if err != nil {
		slog.Error("generating API token", "error", err)
		response.Internal(w)
		return
	}

	u, err := h.users.FindOrInsert(r.Context(), user.NewUser{
		GhLogin:        profile.Login,
		Name:           profile.Name,
		Email:          profile.Email,
		Avatar:         profile.Avatar,
		GhAccessToken:  accessToken,
		APITokenPrefix: prefix,
		APITokenHash:   hash,
	})
	if err != nil {
		if errors.Is(err, user.ErrLoginTaken) {
			response.Errs(w, http.StatusConflict, "login is already in use, please retry")
			return
		}
		slog.Error("reconciling user", "login", profile.Login, "error", err)
		response.Internal(w)
		return
	}

	response.OK(w, struct {
		User     UserView `json:"user"`
		APIToken string   `json:"api_token"`
	}{User: userView(u), APIToken: rawToken})
}

// Me handles GET /api/v1/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	response.OK(w, struct {
		User UserView `json:"user"`
	}{User: userView(u)})
}

// ResetToken handles PUT /api/v1/me/token, invalidating the previous
// API token.
func (h *UserHandler) ResetToken(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	rawToken, err := h.auth.Reset(r.Context(), u.ID)
	if err != nil {
		slog.Error("resetting API token", "user", u.GhLogin, "error", err)
		response.Internal(w)
		return
	}
	response.OK(w, struct {
		APIToken string `json:"api_token"`
	}{APIToken: rawToken})
}

func (h *UserHandler) writeGithubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, github.ErrUnavailable):
		response.Errs(w, http.StatusBadGateway, "github is temporarily unavailable, please retry")
	case errors.Is(err, github.ErrPermission):
		response.Errs(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("github request failed", "error", err)
		response.Internal(w)
	}
}
