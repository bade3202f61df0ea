package models

import "time"

// Window is an inclusive time range. Label is the shorthand the caller asked
// for, or a compact rendering of explicit bounds.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Hull returns the smallest window covering both w and other.
func (w Window) Hull(other Window) Window {
	out := w
	if other.Start.Before(out.Start) {
		out.Start = other.Start
	}
	if other.End.After(out.End) {
		out.End = other.End
	}
	return out
}

// OwnerKind names what a scope is narrowed to.
type OwnerKind string

const (
	OwnerPlatform    OwnerKind = "platform"
	OwnerCompany     OwnerKind = "company"
	OwnerInstitution OwnerKind = "institution"
	OwnerSubject     OwnerKind = "subject"
)

// ApplicationFilter narrows applications by applied_at and ownership.
type ApplicationFilter struct {
	Window      Window
	CompanyID   string
	ApplicantID string
}

// EnrollmentFilter narrows enrollments by enrolled_at and ownership.
type EnrollmentFilter struct {
	Window        Window
	InstitutionID string
	StudentID     string
}

// BusinessPlanFilter narrows business plans by created_at and owner.
type BusinessPlanFilter struct {
	Window  Window
	OwnerID string
}

// ProfileFilter selects the population whose demographics are reported.
// CompanyID selects applicants with an application in the window,
// InstitutionID students with an enrollment in the window, UserID a single
// profile regardless of window. With none set, profiles created in the
// window are selected.
type ProfileFilter struct {
	Window        Window
	CompanyID     string
	InstitutionID string
	UserID        string
}

// MessageFilter narrows messages by created_at and participant.
type MessageFilter struct {
	Window        Window
	ParticipantID string
}

// CertificateFilter narrows issued certificates by issued_at and ownership.
type CertificateFilter struct {
	Window        Window
	InstitutionID string
	StudentID     string
}

// Scope is the resolved visibility of one report request. A nil filter means
// the record type is outside the scope and must not be read.
type Scope struct {
	Role      UserRole
	ActorID   string
	OwnerKind OwnerKind
	OwnerID   string
	Window    Window
	AsOf      time.Time

	Applications  *ApplicationFilter
	Enrollments   *EnrollmentFilter
	BusinessPlans *BusinessPlanFilter
	Profiles      *ProfileFilter
	Messages      *MessageFilter
	Certificates  *CertificateFilter
}

// WithWindow returns a copy of the scope whose filters use w. The receiver
// is left untouched so concurrent aggregators can share it.
func (s Scope) WithWindow(w Window) Scope {
	out := s
	out.Window = w
	if s.Applications != nil {
		f := *s.Applications
		f.Window = w
		out.Applications = &f
	}
	if s.Enrollments != nil {
		f := *s.Enrollments
		f.Window = w
		out.Enrollments = &f
	}
	if s.BusinessPlans != nil {
		f := *s.BusinessPlans
		f.Window = w
		out.BusinessPlans = &f
	}
	if s.Profiles != nil {
		f := *s.Profiles
		f.Window = w
		out.Profiles = &f
	}
	if s.Messages != nil {
		f := *s.Messages
		f.Window = w
		out.Messages = &f
	}
	if s.Certificates != nil {
		f := *s.Certificates
		f.Window = w
		out.Certificates = &f
	}
	return out
}
