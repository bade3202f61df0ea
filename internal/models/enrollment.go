package models

import "time"

// Enrollment captures a student's registration to a course, joined with the
// course title and owning institution.
type Enrollment struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"studentId"`
	CourseID      string     `db:"course_id" json:"courseId"`
	CourseTitle   *string    `db:"course_title" json:"courseTitle,omitempty"`
	InstitutionID string     `db:"institution_id" json:"institutionId"`
	Status        *string    `db:"status" json:"status,omitempty"`
	EnrolledAt    time.Time  `db:"enrolled_at" json:"enrolledAt"`
	CompletedAt   *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Progress      *float64   `db:"progress" json:"progress,omitempty"`
}

// Completed is the only authoritative completion test. Status strings are
// informational and never consulted.
func (e Enrollment) Completed() bool {
	return e.CompletedAt != nil
}
