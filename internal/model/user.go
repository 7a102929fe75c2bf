package model

import (
	"strings"
	"time"
)

// User represents an account as stored in the `users` table.  Companies
// own shows through their account; administrators approve shows and
// dispatch animation requests.  Region and ContactEmail are optional and
// are used by the notification matcher when an owned show carries no
// region or contact of its own.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  CompanyName  – legal name of the company (optional).
//  ContactEmail – address notifications are sent to (optional).
//  Phone        – contact phone (optional).
//  Region       – free text region of the company (optional).
//  IsAdmin      – administrator capability.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	CompanyName  string    // users.company_name
	ContactEmail *string   // users.email (nullable)
	Phone        string    // users.phone
	Region       string    // users.region
	IsAdmin      bool      // users.is_admin
	CreatedAt    time.Time // users.created_at
}

// Email returns the trimmed contact email of the account, or "".
func (u User) Email() string {
	if u.ContactEmail == nil {
		return ""
	}
	return strings.TrimSpace(*u.ContactEmail)
}

// Role returns the role name carried in access tokens.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCompany
}

// Role names stored in the JWT "role" claim.
const (
	RoleAdmin   = "ADMIN"
	RoleCompany = "COMPANY"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is persisted.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
