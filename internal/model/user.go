package model

import "time"

// Role values accepted in users.role.  The default for self-registration is
// RoleUser; instructors and admins are promoted through the admin API.
const (
	RoleUser       = "user"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Register providers.  A user's provider is fixed at creation and decides
// which login path is valid for the account.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User represents an application user record as stored in the `users`
// table.  Email is unique at the storage layer.  PasswordHash is bcrypt and
// empty for accounts created through a social provider; its json tag keeps
// it out of response bodies, so handlers can embed the record directly.
// RegisterProvider is fixed at creation and decides the valid login path.
type User struct {
	ID               uint64    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Name             string    `json:"name"`
	Bio              string    `json:"bio"`
	AvatarURL        string    `json:"avatarUrl"`
	Role             string    `json:"role"`
	RegisterProvider string    `json:"registerProvider"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleInstructor || s == RoleAdmin
}

// ValidProvider reports whether s is one of the known register providers.
func ValidProvider(s string) bool {
	return s == ProviderLocal || s == ProviderGoogle || s == ProviderFacebook
}
