package domain

import "time"

// Role enumerates what a user may do in the workflow.
type Role string

const (
	RoleRequester Role = "requester"
	RoleAnalyst   Role = "analyst"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleAnalyst, RoleAdmin:
		return true
	}
	return false
}

// User is a known identity that can act on tickets.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
