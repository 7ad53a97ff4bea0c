package jwt

import "github.com/golang-jwt/jwt/v5"

// ScoringClaims identify the caller submitting scores.
type ScoringClaims struct {
	jwt.RegisteredClaims
	Tournament string `json:"tournament,omitempty"`
	Role       string `json:"role"`
}

type Role string

const (
	RoleViewer     Role = "viewer"
	RoleCompetitor Role = "competitor"
	RoleAdmin      Role = "admin"
)

// IsAdmin reports whether the claims carry the admin role.
func (c *ScoringClaims) IsAdmin() bool {
	return Role(c.Role) == RoleAdmin
}
