package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

const enrollmentFrom = `
FROM enrollments e
JOIN courses co ON co.id = e.course_id`

// EnrollmentRepository reads course enrollments joined with their course.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments matching filter ordered by enrolled_at.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	where := enrollmentWhere(filter)
	query := `SELECT e.id, e.student_id, e.course_id, co.title AS course_title, co.institution_id,
e.status, e.enrolled_at, e.completed_at, e.progress` + enrollmentFrom + where.String() +
		" ORDER BY e.enrolled_at ASC, e.id ASC"

	enrollments := make([]models.Enrollment, 0)
	if err := r.db.SelectContext(ctx, &enrollments, query, where.args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// Count returns the number of enrollments matching filter.
func (r *EnrollmentRepository) Count(ctx context.Context, filter models.EnrollmentFilter) (int, error) {
	where := enrollmentWhere(filter)
	query := "SELECT COUNT(*)" + enrollmentFrom + where.String()

	var total int
	if err := r.db.GetContext(ctx, &total, query, where.args...); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

func enrollmentWhere(filter models.EnrollmentFilter) *whereBuilder {
	where := &whereBuilder{}
	where.addWindow("e.enrolled_at", filter.Window)
	if filter.InstitutionID != "" {
		where.add("co.institution_id = %s", filter.InstitutionID)
	}
	if filter.StudentID != "" {
		where.add("e.student_id = %s", filter.StudentID)
	}
	return where
}
