package models

// UserRole is the role claim carried by access tokens issued upstream.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleJudge UserRole = "judge"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleJudge
}
