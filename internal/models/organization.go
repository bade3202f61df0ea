package models

// Company owns job offers. OwnerID is the user acting for the company.
type Company struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	OwnerID string `db:"owner_id" json:"ownerId"`
}

// Institution owns courses. AdminID is the user acting for the institution.
type Institution struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	AdminID string `db:"admin_id" json:"adminId"`
}
