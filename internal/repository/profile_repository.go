package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// ProfileRepository reads the demographic fields of user profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// List returns the profile population selected by filter.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	where := profileWhere(filter)
	query := "SELECT p.id, p.birth_date, p.graduation_year, p.city, p.created_at FROM profiles p" +
		where.String() + " ORDER BY p.id ASC"

	profiles := make([]models.Profile, 0)
	if err := r.db.SelectContext(ctx, &profiles, query, where.args...); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Count returns the size of the profile population selected by filter.
func (r *ProfileRepository) Count(ctx context.Context, filter models.ProfileFilter) (int, error) {
	where := profileWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM profiles p"+where.String(), where.args...); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return total, nil
}

// profileWhere selects one population; see models.ProfileFilter for the
// precedence of the ownership fields.
func profileWhere(filter models.ProfileFilter) *whereBuilder {
	where := &whereBuilder{}
	switch {
	case filter.UserID != "":
		where.add("p.id = %s", filter.UserID)
	case filter.CompanyID != "":
		where.raw(fmt.Sprintf(`p.id IN (SELECT a.applicant_id FROM applications a
JOIN job_offers jo ON jo.id = a.job_offer_id
WHERE jo.company_id = %s AND a.applied_at >= %s AND a.applied_at <= %s)`,
			where.bind(filter.CompanyID), where.bind(filter.Window.Start), where.bind(filter.Window.End)))
	case filter.InstitutionID != "":
		where.raw(fmt.Sprintf(`p.id IN (SELECT e.student_id FROM enrollments e
JOIN courses co ON co.id = e.course_id
WHERE co.institution_id = %s AND e.enrolled_at >= %s AND e.enrolled_at <= %s)`,
			where.bind(filter.InstitutionID), where.bind(filter.Window.Start), where.bind(filter.Window.End)))
	default:
		where.addWindow("p.created_at", filter.Window)
	}
	return where
}
