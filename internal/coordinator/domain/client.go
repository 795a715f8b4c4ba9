package domain

import "time"

// OAuth2 grant types the registry understands.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// Client is a registered API client. The secret is stored only as a bcrypt
// hash and must never appear in logs or responses.
type Client struct {
	ID          string
	Name        string
	SecretHash  string
	GrantTypes  []string
	Scopes      []string
	Authorities []string
	AccessTTL   time.Duration
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AllowsGrant reports whether the client may use the given grant type.
func (c Client) AllowsGrant(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}
