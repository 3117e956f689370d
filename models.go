package authgate

import (
	"github.com/uptrace/bun"
)

// User is the account model. The username is the primary key; Token holds
// the exact string of the last issued bearer token and is the comparison
// value for revocation. An empty Token maps to NULL.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	Username     string `bun:"username,pk" json:"username"`
	Email        string `bun:"email,notnull" json:"email"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`
	IsAdmin      bool   `bun:"is_admin,notnull" json:"is_admin"`
	Token        string `bun:"token,nullzero" json:"token,omitempty"`
}

// Partial returns the projection safe to expose: no hash, no token.
func (u User) Partial() PartialUser {
	return PartialUser{
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

// PartialUser is the reduced account view returned by list endpoints.
type PartialUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Credentials is an ephemeral username/password pair. It is never persisted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewPassword is the change_password payload.
type NewPassword struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// ApiKey is the principal produced by the guard: proof that the request
// carried a token that passed both the cryptographic and the store check.
type ApiKey struct {
	Token string `json:"token"`
}
