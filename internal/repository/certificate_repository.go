package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// CertificateRepository counts issued course certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Count returns certificates issued inside the filter window.
func (r *CertificateRepository) Count(ctx context.Context, filter models.CertificateFilter) (int, error) {
	where := &whereBuilder{}
	where.addWindow("ce.issued_at", filter.Window)
	if filter.InstitutionID != "" {
		where.add("co.institution_id = %s", filter.InstitutionID)
	}
	if filter.StudentID != "" {
		where.add("ce.student_id = %s", filter.StudentID)
	}
	query := "SELECT COUNT(*) FROM certificates ce JOIN courses co ON co.id = ce.course_id" + where.String()

	var total int
	if err := r.db.GetContext(ctx, &total, query, where.args...); err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return total, nil
}
