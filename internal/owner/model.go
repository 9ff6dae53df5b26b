package owner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crateport/crateport/internal/user"
)

// Kind discriminates crate_owners rows between users and teams.
type Kind int

const (
	KindUser Kind = 0
	KindTeam Kind = 1
)

// Rights is the permission tier a requester holds on a crate.
type Rights int

const (
	// RightsNone: not an owner through any path.
	RightsNone Rights = iota
	// RightsPublish: reachable only through a team owner; may publish but
	// not modify the owner set.
	RightsPublish
	// RightsFull: a direct user owner.
	RightsFull
)

func (r Rights) String() string {
	switch r {
	case RightsFull:
		return "full"
	case RightsPublish:
		return "publish"
	default:
		return "none"
	}
}

// Owner is either a user or a team listed in crate_owners.
type Owner interface {
	ID() int64
	Kind() Kind
	Login() string
}

// UserOwner is a direct user owner of a crate.
type UserOwner struct {
	User user.User
}

func (o UserOwner) ID() int64     { return o.User.ID }
func (o UserOwner) Kind() Kind    { return KindUser }
func (o UserOwner) Login() string { return o.User.GhLogin }

// Team is a GitHub team registered as a crate owner. Login keeps the
// namespaced "github:org:team" syntax; GithubID is the provider's team id
// used for membership checks.
type Team struct {
	RowID     int64
	TeamLogin string
	GithubID  int64
	Name      *string
	Avatar    *string
}

// TeamOwner is a team owner of a crate.
type TeamOwner struct {
	Team Team
}

func (o TeamOwner) ID() int64     { return o.Team.RowID }
func (o TeamOwner) Kind() Kind    { return KindTeam }
func (o TeamOwner) Login() string { return o.Team.TeamLogin }

// TeamInfo describes a team as reported by the identity provider.
type TeamInfo struct {
	GithubID int64
	Name     *string
	Avatar   *string
}

// MembershipResolver answers team queries against the identity provider
// at check time, using the requesting user's stored access token. Team
// membership is deliberately not cached in the relational store.
type MembershipResolver interface {
	FindTeam(ctx context.Context, accessToken, org, team string) (*TeamInfo, error)
	IsTeamMember(ctx context.Context, accessToken string, githubTeamID int64, login string) (bool, error)
}

// RightsOf computes the requester's permission level against a crate's
// current owner set: RightsFull for a direct user owner, RightsPublish
// for membership in any team owner, RightsNone otherwise.
func RightsOf(ctx context.Context, resolver MembershipResolver, owners []Owner, u *user.User) (Rights, error) {
	best := RightsNone
	for _, o := range owners {
		switch o := o.(type) {
		case UserOwner:
			if o.User.GhLogin == u.GhLogin {
				return RightsFull, nil
			}
		case TeamOwner:
			if best >= RightsPublish {
				continue
			}
			member, err := resolver.IsTeamMember(ctx, u.GhAccessToken, o.Team.GithubID, u.GhLogin)
			if err != nil {
				return RightsNone, fmt.Errorf("checking membership of team %s: %w", o.Team.TeamLogin, err)
			}
			if member {
				best = RightsPublish
			}
		}
	}
	return best, nil
}

// ErrInvalidTeamLogin is returned for team logins not matching the
// "github:org:team" syntax.
var ErrInvalidTeamLogin = errors.New("team logins must be of the form github:org:team")

// ParseTeamLogin splits a namespaced team login into org and team slug.
func ParseTeamLogin(login string) (org, team string, err error) {
	parts := strings.Split(login, ":")
	if len(parts) != 3 || parts[0] != "github" || parts[1] == "" || parts[2] == "" {
		return "", "", ErrInvalidTeamLogin
	}
	return parts[1], parts[2], nil
}
