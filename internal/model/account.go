package model

import "time"

// Account is an entry in the credential store under audit
type Account struct {
	Username     string // login identifier (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
