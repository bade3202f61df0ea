package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// OrganizationRepository resolves companies and institutions. Errors wrap
// sql.ErrNoRows when nothing matches.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CompanyByOwner returns the company a user acts for.
func (r *OrganizationRepository) CompanyByOwner(ctx context.Context, ownerID string) (*models.Company, error) {
	const query = `SELECT id, name, owner_id FROM companies WHERE owner_id = $1 ORDER BY id ASC LIMIT 1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, ownerID); err != nil {
		return nil, fmt.Errorf("company by owner: %w", err)
	}
	return &company, nil
}

// CompanyByID returns a company by identifier.
func (r *OrganizationRepository) CompanyByID(ctx context.Context, id string) (*models.Company, error) {
	const query = `SELECT id, name, owner_id FROM companies WHERE id = $1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		return nil, fmt.Errorf("company by id: %w", err)
	}
	return &company, nil
}

// InstitutionByAdmin returns the institution a user administers.
func (r *OrganizationRepository) InstitutionByAdmin(ctx context.Context, adminID string) (*models.Institution, error) {
	const query = `SELECT id, name, admin_id FROM institutions WHERE admin_id = $1 ORDER BY id ASC LIMIT 1`
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, adminID); err != nil {
		return nil, fmt.Errorf("institution by admin: %w", err)
	}
	return &institution, nil
}

// InstitutionByID returns an institution by identifier.
func (r *OrganizationRepository) InstitutionByID(ctx context.Context, id string) (*models.Institution, error) {
	const query = `SELECT id, name, admin_id FROM institutions WHERE id = $1`
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, fmt.Errorf("institution by id: %w", err)
	}
	return &institution, nil
}
