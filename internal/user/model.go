package user

// User is an external-identity-backed principal. GhLogin is the identity
// key; reconciliation is upsert-by-login. API tokens are stored as a
// lookup prefix plus a bcrypt hash, never in the clear.
type User struct {
	ID             int64
	GhLogin        string
	Name           *string
	Email          *string
	Avatar         *string
	GhAccessToken  string
	APITokenPrefix string
	APITokenHash   string
}

// NewUser holds the candidate record for the find-or-insert reconciler.
type NewUser struct {
	GhLogin        string
	Name           *string
	Email          *string
	Avatar         *string
	GhAccessToken  string
	APITokenPrefix string
	APITokenHash   string
}
