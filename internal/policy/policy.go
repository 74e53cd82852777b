// Package policy holds the authorization predicates for recommendation
// mutations.
//
// Every function here is pure: callers pass the role read from the persisted
// user record and the ownership facts, never values taken from a request
// payload. Any client-side mirror of these rules is cosmetic.
package policy

import "github.com/sakif/hypeshelf/internal/model"

// IsAdmin reports whether role carries admin rights.
func IsAdmin(role model.Role) bool {
	return role == model.RoleAdmin
}

// IsUser reports whether role is the plain user role.
func IsUser(role model.Role) bool {
	return role == model.RoleUser
}

// IsOwner reports whether userID owns a recommendation with ownerID.
// An empty id never owns anything.
func IsOwner(userID, ownerID string) bool {
	return userID != "" && userID == ownerID
}

// CanDelete reports whether a caller may delete a recommendation: owners may
// delete their own, admins may delete any.
func CanDelete(role model.Role, isOwner bool) bool {
	return IsAdmin(role) || isOwner
}

// CanDeleteAny reports whether role may delete recommendations it does not own.
func CanDeleteAny(role model.Role) bool {
	return IsAdmin(role)
}

// CanToggleStaffPick reports whether role may set the global staff pick.
func CanToggleStaffPick(role model.Role) bool {
	return IsAdmin(role)
}
