package domain

import "time"

// User is a resource owner who can obtain tokens via the password grant and
// work on tasks. Role doubles as the candidate group for group-routed tasks.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt encoded
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
