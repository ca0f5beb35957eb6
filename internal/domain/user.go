package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the account roles known to the helpdesk.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role works tickets (agent or admin).
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// customIDFormat maps a role to its display identifier prefix and width.
var customIDFormat = map[Role]struct {
	Prefix string
	Digits int
}{
	RoleUser:  {Prefix: "U", Digits: 6},
	RoleAgent: {Prefix: "AG", Digits: 5},
	RoleAdmin: {Prefix: "AD", Digits: 3},
}

// CustomIDPrefix returns the display identifier prefix for the role.
func (r Role) CustomIDPrefix() string {
	if f, ok := customIDFormat[r]; ok {
		return f.Prefix
	}
	return customIDFormat[RoleUser].Prefix
}

// FormatCustomID renders n as the role's zero-padded display identifier.
func (r Role) FormatCustomID(n int64) string {
	f, ok := customIDFormat[r]
	if !ok {
		f = customIDFormat[RoleUser]
	}
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Digits, n)
}

// AccountStatus represents whether an account may use the service.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusBlocked
}

// User is the helpdesk profile attached to an identity-provider account.
type User struct {
	ID            string
	Email         string
	Name          string
	Role          Role
	CustomID      string
	Username      string
	Verified      bool
	VerifiedAt    *time.Time
	AccountStatus AccountStatus
	ActiveTickets int
	TotalResolved int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName is the name shown in timeline entries.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	if u.Username != "" {
		return u.Username
	}
	if u.CustomID != "" {
		return u.CustomID
	}
	if u.Email != "" {
		return localPart(u.Email)
	}
	return "Unknown"
}

// CanActAsStaff reports whether an agent/admin passed verification.
// Plain users are implicitly verified.
func (u *User) CanActAsStaff() bool {
	return u != nil && (!u.Role.IsStaff() || u.Verified)
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
