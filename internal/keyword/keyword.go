// Package keyword manages the keywords and crates_keywords tables and
// the character-class rules publish enforces on submitted keywords.
package keyword

import (
	"context"
	"time"
)

// Keyword represents a row in the keywords table.
type Keyword struct {
	ID        int64
	Keyword   string
	CratesCnt int64
	CreatedAt time.Time
}

// Valid reports whether k is an acceptable keyword: ASCII, at most 20
// characters, starting with a letter or digit, containing only letters,
// digits, underscores, hyphens and plus signs.
func Valid(k string) bool {
	if k == "" || len(k) > 20 {
		return false
	}
	for i, c := range k {
		if c > 127 {
			return false
		}
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if i == 0 {
			if !isAlnum {
				return false
			}
			continue
		}
		if !isAlnum && c != '_' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

// Repository provides keyword persistence and crate association.
type Repository interface {
	// FindOrInsert returns the keyword row, creating it if absent.
	FindOrInsert(ctx context.Context, keyword string) (*Keyword, error)

	// UpdateCrate replaces a crate's keyword associations with the given
	// set, adjusting crates_cnt on both sides of the diff.
	UpdateCrate(ctx context.Context, crateID int64, keywords []string) error

	// ByCrate returns the keywords associated with a crate.
	ByCrate(ctx context.Context, crateID int64) ([]Keyword, error)
}
