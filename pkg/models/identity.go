package models

// Role is the authorization role of a caller.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent || r == RoleClient
}

// Caller is the already-authenticated identity an operation runs on behalf of.
type Caller struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsStaff reports whether the caller may mutate financial data.
func (c Caller) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleAgent
}
