package domain

import "time"

// Account is a credential record held by the identity provider. The
// account ID doubles as the primary key of the helpdesk User.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is what a verified bearer credential resolves to.
type Identity struct {
	ID    string
	Email string
}
