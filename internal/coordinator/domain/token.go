package domain

import "time"

// TokenPair is what the token endpoint returns: the short-lived signed
// access token and, for user grants, an opaque refresh token. The HTTP
// layer owns the wire encoding; this type never marshals directly.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // typically "Bearer"
	ExpiresIn    time.Duration
	Scope        string // space-delimited
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	ClientID  string
	TokenHash string
	Scopes    []string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
