package crate

import (
	"strings"
	"time"
)

// Crate represents a row in the crates table.
//
// Name keeps the display casing from the first publish; uniqueness is
// enforced on the canonical form (see CanonName). MaxVersion is the
// highest published semver, with "0.0.0" as the never-published sentinel.
type Crate struct {
	ID            int64
	Name          string
	UserID        int64
	UpdatedAt     time.Time
	CreatedAt     time.Time
	Downloads     int64
	MaxVersion    string
	Description   *string
	Homepage      *string
	Documentation *string
	Readme        *string
	License       *string
	Repository    *string
	Keywords      []string
}

// NewCrate holds the candidate record for the find-or-insert reconciler.
type NewCrate struct {
	Name          string
	UserID        int64
	Description   *string
	Homepage      *string
	Documentation *string
	Readme        *string
	License       *string
	Repository    *string
	Keywords      []string
}

// CanonName normalizes a crate name to its canonical identity: lower-cased
// with hyphens folded into underscores. It mirrors the canon_crate_name SQL
// function backing the functional unique index on crates.name.
func CanonName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// ValidName reports whether name is an acceptable crate name: non-empty
// ASCII, starting with a letter, containing only letters, digits, hyphens
// and underscores.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c > 127 {
			return false
		}
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if i == 0 {
			if !isLetter {
				return false
			}
			continue
		}
		if !isLetter && !isDigit && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

// ValidFeatureName reports whether name is an acceptable feature name:
// either a valid crate name, or "crate/feature" with both halves valid.
func ValidFeatureName(name string) bool {
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 1:
		return ValidName(parts[0])
	case 2:
		return ValidName(parts[0]) && ValidName(parts[1])
	default:
		return false
	}
}

// ArtifactKey returns the deterministic artifact store key for one
// version of this crate.
func (c *Crate) ArtifactKey(version string) string {
	return "/crates/" + c.Name + "/" + c.Name + "-" + version + ".crate"
}
