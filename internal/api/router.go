// Package api wires the HTTP surface of the registry: routing,
// middleware and the handler set.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crateport/crateport/internal/api/handler"
	"github.com/crateport/crateport/internal/api/middleware"
	"github.com/crateport/crateport/internal/auth"
	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/download"
	"github.com/crateport/crateport/internal/github"
	"github.com/crateport/crateport/internal/index"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/publish"
	"github.com/crateport/crateport/internal/storage"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger      handler.DBPinger
	Version       string
	MaxUploadSize int64

	Crates    crate.Repository
	Versions  version.Repository
	Owners    owner.Repository
	Users     user.Repository
	Downloads download.Repository

	Auth     *auth.Service
	Github   *github.Client
	Publish  *publish.Service
	Store    storage.Store
	IndexWtr index.Writer
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	publishHandler := handler.NewPublishHandler(deps.Publish, deps.MaxUploadSize)
	crateHandler := handler.NewCrateHandler(deps.Crates, deps.Versions)
	downloadHandler := handler.NewDownloadHandler(deps.Crates, deps.Versions, deps.Downloads, deps.Store)
	versionHandler := handler.NewVersionHandler(deps.Crates, deps.Versions, deps.Owners, deps.Github, deps.IndexWtr)
	ownerHandler := handler.NewOwnerHandler(deps.Crates, deps.Owners, deps.Github)
	userHandler := handler.NewUserHandler(deps.Users, deps.Auth, deps.Github)

	authed := middleware.Auth(deps.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/authorize", userHandler.Authorize)

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/me", userHandler.Me)
			r.Put("/me/token", userHandler.ResetToken)
		})

		r.Route("/crates", func(r chi.Router) {
			r.With(authed).Put("/new", publishHandler.ServeHTTP)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", crateHandler.Show)
				r.Get("/versions", crateHandler.Versions)
				r.Get("/owners", ownerHandler.List)
				r.Get("/{version}/download", downloadHandler.ServeHTTP)

				r.Group(func(r chi.Router) {
					r.Use(authed)
					r.Put("/owners", ownerHandler.Add)
					r.Delete("/owners", ownerHandler.Remove)
					r.Put("/follow", crateHandler.Follow)
					r.Delete("/follow", crateHandler.Unfollow)
					r.Get("/following", crateHandler.Following)
					r.Delete("/{version}/yank", versionHandler.Yank)
					r.Put("/{version}/unyank", versionHandler.Unyank)
				})
			})
		})
	})

	return r
}
