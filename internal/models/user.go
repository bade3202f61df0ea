package models

// UserRole represents the platform roles a reporting caller can hold.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleCompany     UserRole = "COMPANY"
	RoleInstitution UserRole = "INSTITUTION"
	RoleIndividual  UserRole = "INDIVIDUAL"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleInstitution, RoleIndividual:
		return true
	}
	return false
}

// Actor identifies the authenticated caller a report is generated for.
type Actor struct {
	ID   string
	Role UserRole
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
