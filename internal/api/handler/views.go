// Package handler contains the HTTP handlers for the registry API. Each
// handler translates domain errors into the wire error list; view types
// here define the JSON shapes registry clients consume.
package handler

import (
	"time"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/owner"
	"github.com/crateport/crateport/internal/user"
	"github.com/crateport/crateport/internal/version"
)

// CrateView is the wire representation of a crate.
type CrateView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	UpdatedAt     string   `json:"updated_at"`
	CreatedAt     string   `json:"created_at"`
	Downloads     int64    `json:"downloads"`
	MaxVersion    string   `json:"max_version"`
	Description   *string  `json:"description"`
	Homepage      *string  `json:"homepage"`
	Documentation *string  `json:"documentation"`
	License       *string  `json:"license"`
	Repository    *string  `json:"repository"`
	Keywords      []string `json:"keywords"`
}

// VersionView is the wire representation of a published version.
type VersionView struct {
	ID        int64               `json:"id"`
	Crate     string              `json:"crate"`
	Num       string              `json:"num"`
	UpdatedAt string              `json:"updated_at"`
	CreatedAt string              `json:"created_at"`
	Downloads int64               `json:"downloads"`
	Features  map[string][]string `json:"features"`
	Yanked    bool                `json:"yanked"`
}

// OwnerView is the wire representation of a crate owner.
type OwnerView struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Kind  string `json:"kind"`
}

// UserView is the wire representation of a user profile.
type UserView struct {
	ID     int64   `json:"id"`
	Login  string  `json:"login"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

func crateView(c *crate.Crate) CrateView {
	kw := c.Keywords
	if kw == nil {
		kw = []string{}
	}
	return CrateView{
		ID:            c.Name,
		Name:          c.Name,
		UpdatedAt:     c.UpdatedAt.UTC().Format(time.RFC3339),
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
		Downloads:     c.Downloads,
		MaxVersion:    c.MaxVersion,
		Description:   c.Description,
		Homepage:      c.Homepage,
		Documentation: c.Documentation,
		License:       c.License,
		Repository:    c.Repository,
		Keywords:      kw,
	}
}

func versionView(crateName string, v *version.Version) VersionView {
	features := v.Features
	if features == nil {
		features = map[string][]string{}
	}
	return VersionView{
		ID:        v.ID,
		Crate:     crateName,
		Num:       v.Num,
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		Downloads: v.Downloads,
		Features:  features,
		Yanked:    v.Yanked,
	}
}

func ownerView(o owner.Owner) OwnerView {
	kind := "user"
	if o.Kind() == owner.KindTeam {
		kind = "team"
	}
	return OwnerView{ID: o.ID(), Login: o.Login(), Kind: kind}
}

func userView(u *user.User) UserView {
	return UserView{
		ID:     u.ID,
		Login:  u.GhLogin,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
	}
}
