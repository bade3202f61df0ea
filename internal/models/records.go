package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of a job application.
type ApplicationStatus string

const (
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under-review"
	ApplicationPreSelected ApplicationStatus = "pre-selected"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationHired       ApplicationStatus = "hired"
)

// ApplicationStatuses lists every known status in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationSubmitted,
	ApplicationUnderReview,
	ApplicationPreSelected,
	ApplicationRejected,
	ApplicationHired,
}

// Application is a candidate's application to a job offer, joined with the
// offer's company and experience level.
type Application struct {
	ID              string            `db:"id" json:"id"`
	ApplicantID     string            `db:"applicant_id" json:"applicantId"`
	JobOfferID      string            `db:"job_offer_id" json:"jobOfferId"`
	CompanyID       string            `db:"company_id" json:"companyId"`
	CompanyName     *string           `db:"company_name" json:"companyName,omitempty"`
	ExperienceLevel *string           `db:"experience_level" json:"experienceLevel,omitempty"`
	Status          ApplicationStatus `db:"status" json:"status"`
	AppliedAt       time.Time         `db:"applied_at" json:"appliedAt"`
	ReviewedAt      *time.Time        `db:"reviewed_at" json:"reviewedAt,omitempty"`
}

// BusinessPlan is an entrepreneur's plan with freeform content.
type BusinessPlan struct {
	ID        string      `db:"id" json:"id"`
	OwnerID   string      `db:"owner_id" json:"ownerId"`
	Status    string      `db:"status" json:"status"`
	Content   PlanContent `db:"content" json:"content"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// PlanContent holds the JSONB document of a business plan. Known keys are
// fundingGoal, currentFunding and industry; values are untrusted.
type PlanContent map[string]interface{}

// Value marshals content to JSON for persistence.
func (p PlanContent) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal plan content: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the content map. Content that is not a
// JSON object scans as empty so a single malformed plan only contributes
// zero and Unknown values.
func (p *PlanContent) Scan(value interface{}) error {
	*p = PlanContent{}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}
	content := PlanContent{}
	if err := json.Unmarshal(data, &content); err != nil || content == nil {
		return nil
	}
	*p = content
	return nil
}

// Profile is the demographic slice of a user profile.
type Profile struct {
	ID             string     `db:"id" json:"id"`
	BirthDate      *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	GraduationYear *int       `db:"graduation_year" json:"graduationYear,omitempty"`
	City           *string    `db:"city" json:"city,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Message is a direct message between two users.
type Message struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	RecipientID string    `db:"recipient_id" json:"recipientId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
