package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

const applicationFrom = `
FROM applications a
JOIN job_offers jo ON jo.id = a.job_offer_id
LEFT JOIN companies c ON c.id = jo.company_id`

// ApplicationRepository reads job applications joined with their offer.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns the applications matching filter ordered by applied_at.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	where := applicationWhere(filter)
	query := `SELECT a.id, a.applicant_id, a.job_offer_id, jo.company_id, c.name AS company_name,
jo.experience_level, a.status, a.applied_at, a.reviewed_at` + applicationFrom + where.String() +
		" ORDER BY a.applied_at ASC, a.id ASC"

	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, where.args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Count returns the number of applications matching filter.
func (r *ApplicationRepository) Count(ctx context.Context, filter models.ApplicationFilter) (int, error) {
	where := applicationWhere(filter)
	query := "SELECT COUNT(*)" + applicationFrom + where.String()

	var total int
	if err := r.db.GetContext(ctx, &total, query, where.args...); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return total, nil
}

func applicationWhere(filter models.ApplicationFilter) *whereBuilder {
	where := &whereBuilder{}
	where.addWindow("a.applied_at", filter.Window)
	if filter.CompanyID != "" {
		where.add("jo.company_id = %s", filter.CompanyID)
	}
	if filter.ApplicantID != "" {
		where.add("a.applicant_id = %s", filter.ApplicantID)
	}
	return where
}
