package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// BusinessPlanRepository reads business plans.
type BusinessPlanRepository struct {
	db *sqlx.DB
}

// NewBusinessPlanRepository constructs the repository.
func NewBusinessPlanRepository(db *sqlx.DB) *BusinessPlanRepository {
	return &BusinessPlanRepository{db: db}
}

// List returns plans created inside the filter window.
func (r *BusinessPlanRepository) List(ctx context.Context, filter models.BusinessPlanFilter) ([]models.BusinessPlan, error) {
	where := businessPlanWhere(filter)
	query := "SELECT id, owner_id, status, content, created_at FROM business_plans" + where.String() +
		" ORDER BY created_at ASC, id ASC"

	plans := make([]models.BusinessPlan, 0)
	if err := r.db.SelectContext(ctx, &plans, query, where.args...); err != nil {
		return nil, fmt.Errorf("list business plans: %w", err)
	}
	return plans, nil
}

// Count returns the number of plans matching filter.
func (r *BusinessPlanRepository) Count(ctx context.Context, filter models.BusinessPlanFilter) (int, error) {
	where := businessPlanWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM business_plans"+where.String(), where.args...); err != nil {
		return 0, fmt.Errorf("count business plans: %w", err)
	}
	return total, nil
}

func businessPlanWhere(filter models.BusinessPlanFilter) *whereBuilder {
	where := &whereBuilder{}
	where.addWindow("created_at", filter.Window)
	if filter.OwnerID != "" {
		where.add("owner_id = %s", filter.OwnerID)
	}
	return where
}
