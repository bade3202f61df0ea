package dto

import "time"

// DashboardQuery captures GET /dashboard query parameters. Range and the
// bounds are checked when the window is resolved.
type DashboardQuery struct {
	Range string `form:"range" validate:"omitempty,max=16"`
	Start string `form:"start" validate:"omitempty,max=64"`
	End   string `form:"end" validate:"omitempty,max=64"`
}

// Bounds parses the explicit window bounds.
func (q DashboardQuery) Bounds() (*time.Time, *time.Time, error) {
	return ParseBounds(q.Start, q.End)
}
