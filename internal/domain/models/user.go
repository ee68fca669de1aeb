package models

// Role separates the admin portal (budget officers) from the end-user portal
// (department staff).
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEndUser Role = "enduser"
)

// Actor is the authenticated identity attached to a request. Authentication
// itself happens upstream; the gateway forwards identity headers.
type Actor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
	IPAddress  string `json:"-"`
}

// IsAdmin reports whether the actor may use admin operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
