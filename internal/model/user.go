// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the authorization role stored on a User record.
//
// Only the identity provider's sync events can change it. Lazily created
// users always start as RoleUser.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the internal record for a principal of the external identity provider.
//
// Subject is the provider's stable identifier (the JWT "sub" claim). The
// UNIQUE constraint on subject in the DB ensures one provider account maps to
// exactly one internal user. ID is our own xid so foreign keys never depend on
// the provider's namespace.
//
// ImageURL may be empty: the provider does not guarantee an avatar.
type User struct {
	ID          string    `json:"id"          db:"id"`
	Subject     string    `json:"subject"     db:"external_subject"`
	DisplayName string    `json:"displayName" db:"display_name"`
	ImageURL    string    `json:"imageUrl"    db:"image_url"`
	Role        Role      `json:"role"        db:"role"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// Identity is a verified caller as presented by the identity provider.
// DisplayName and ImageURL are optional hints used only when a user record
// has to be created lazily.
type Identity struct {
	Subject     string
	DisplayName string
	ImageURL    string
}

// SyncEvent is the payload of a verified user create/update event pushed by
// the identity provider.
type SyncEvent struct {
	Subject     string
	DisplayName string
	ImageURL    string
	Role        Role
}
