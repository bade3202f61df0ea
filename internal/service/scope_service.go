package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

// DefaultRange is applied when a request names no window.
const DefaultRange = "30d"

var rangeShorthands = map[string]func(time.Time) time.Time{
	"7d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -7) },
	"30d": func(t time.Time) time.Time { return t.AddDate(0, 0, -30) },
	"90d": func(t time.Time) time.Time { return t.AddDate(0, 0, -90) },
	"1y":  func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) },
}

type organizationLookup interface {
	CompanyByOwner(ctx context.Context, ownerID string) (*models.Company, error)
	CompanyByID(ctx context.Context, id string) (*models.Company, error)
	InstitutionByAdmin(ctx context.Context, adminID string) (*models.Institution, error)
	InstitutionByID(ctx context.Context, id string) (*models.Institution, error)
}

// ScopeRequest carries the caller and the narrowing it asked for.
type ScopeRequest struct {
	Actor         models.Actor
	Range         string
	Start         *time.Time
	End           *time.Time
	CompanyID     string
	InstitutionID string
	UserID        string
}

// ScopeService turns a caller and its request parameters into the record
// filters every aggregator of one report shares.
type ScopeService struct {
	orgs organizationLookup
	now  func() time.Time
}

// NewScopeService constructs the resolver.
func NewScopeService(orgs organizationLookup) *ScopeService {
	return &ScopeService{orgs: orgs, now: time.Now}
}

// ResolveWindow parses a shorthand or explicit bounds. Explicit bounds win
// over the shorthand and must be given together.
func (s *ScopeService) ResolveWindow(rng string, start, end *time.Time) (models.Window, error) {
	now := s.now().UTC()
	if start != nil || end != nil {
		if start == nil || end == nil {
			return models.Window{}, appErrors.Clone(appErrors.ErrInvalidTimeRange, "start and end must be provided together")
		}
		from, to := start.UTC(), end.UTC()
		if from.After(to) {
			return models.Window{}, appErrors.Clone(appErrors.ErrInvalidTimeRange, "start must not be after end")
		}
		return models.Window{Start: from, End: to, Label: from.Format("20060102") + "-" + to.Format("20060102")}, nil
	}

	if rng == "" {
		rng = DefaultRange
	}
	back, ok := rangeShorthands[rng]
	if !ok {
		return models.Window{}, appErrors.Clone(appErrors.ErrInvalidTimeRange, "unsupported range "+rng)
	}
	return models.Window{Start: back(now), End: now, Label: rng}, nil
}

// Resolve builds the scope for req.
func (s *ScopeService) Resolve(ctx context.Context, req ScopeRequest) (models.Scope, error) {
	if req.Actor.ID == "" || !req.Actor.Role.Valid() {
		return models.Scope{}, appErrors.ErrUnauthorized
	}
	window, err := s.ResolveWindow(req.Range, req.Start, req.End)
	if err != nil {
		return models.Scope{}, err
	}

	base := models.Scope{
		Role:    req.Actor.Role,
		ActorID: req.Actor.ID,
		Window:  window,
		AsOf:    s.now().UTC(),
	}

	switch req.Actor.Role {
	case models.RoleAdmin:
		return s.resolveAdmin(ctx, base, req)
	case models.RoleCompany:
		if req.InstitutionID != "" || req.UserID != "" {
			return models.Scope{}, appErrors.Clone(appErrors.ErrForbidden, "company reports cannot be narrowed to other owners")
		}
		company, err := s.lookupCompany(func() (*models.Company, error) { return s.orgs.CompanyByOwner(ctx, req.Actor.ID) })
		if err != nil {
			return models.Scope{}, err
		}
		if req.CompanyID != "" && req.CompanyID != company.ID {
			return models.Scope{}, appErrors.Clone(appErrors.ErrForbidden, "company reports are limited to the caller's company")
		}
		return companyScope(base, company), nil
	case models.RoleInstitution:
		if req.CompanyID != "" || req.UserID != "" {
			return models.Scope{}, appErrors.Clone(appErrors.ErrForbidden, "institution reports cannot be narrowed to other owners")
		}
		institution, err := s.lookupInstitution(func() (*models.Institution, error) { return s.orgs.InstitutionByAdmin(ctx, req.Actor.ID) })
		if err != nil {
			return models.Scope{}, err
		}
		if req.InstitutionID != "" && req.InstitutionID != institution.ID {
			return models.Scope{}, appErrors.Clone(appErrors.ErrForbidden, "institution reports are limited to the caller's institution")
		}
		return institutionScope(base, institution), nil
	default:
		if req.CompanyID != "" || req.InstitutionID != "" || (req.UserID != "" && req.UserID != req.Actor.ID) {
			return models.Scope{}, appErrors.Clone(appErrors.ErrForbidden, "individual reports are limited to the caller")
		}
		return subjectScope(base, req.Actor.ID), nil
	}
}

func (s *ScopeService) resolveAdmin(ctx context.Context, base models.Scope, req ScopeRequest) (models.Scope, error) {
	narrowed := 0
	for _, v := range []string{req.CompanyID, req.InstitutionID, req.UserID} {
		if v != "" {
			narrowed++
		}
	}
	if narrowed > 1 {
		return models.Scope{}, appErrors.Clone(appErrors.ErrValidation, "only one of companyId, institutionId or userId may be set")
	}

	switch {
	case req.CompanyID != "":
		company, err := s.lookupCompany(func() (*models.Company, error) { return s.orgs.CompanyByID(ctx, req.CompanyID) })
		if err != nil {
			return models.Scope{}, err
		}
		return companyScope(base, company), nil
	case req.InstitutionID != "":
		institution, err := s.lookupInstitution(func() (*models.Institution, error) { return s.orgs.InstitutionByID(ctx, req.InstitutionID) })
		if err != nil {
			return models.Scope{}, err
		}
		return institutionScope(base, institution), nil
	case req.UserID != "":
		return subjectScope(base, req.UserID), nil
	}

	w := base.Window
	base.OwnerKind = models.OwnerPlatform
	base.Applications = &models.ApplicationFilter{Window: w}
	base.Enrollments = &models.EnrollmentFilter{Window: w}
	base.BusinessPlans = &models.BusinessPlanFilter{Window: w}
	base.Profiles = &models.ProfileFilter{Window: w}
	base.Messages = &models.MessageFilter{Window: w}
	base.Certificates = &models.CertificateFilter{Window: w}
	return base, nil
}

func (s *ScopeService) lookupCompany(find func() (*models.Company, error)) (*models.Company, error) {
	if s.orgs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "organization lookup unavailable")
	}
	company, err := find()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScopeNotFound, "company not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to resolve company")
	}
	return company, nil
}

func (s *ScopeService) lookupInstitution(find func() (*models.Institution, error)) (*models.Institution, error) {
	if s.orgs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "organization lookup unavailable")
	}
	institution, err := find()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScopeNotFound, "institution not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to resolve institution")
	}
	return institution, nil
}

func companyScope(base models.Scope, company *models.Company) models.Scope {
	w := base.Window
	base.OwnerKind = models.OwnerCompany
	base.OwnerID = company.ID
	base.Applications = &models.ApplicationFilter{Window: w, CompanyID: company.ID}
	base.Profiles = &models.ProfileFilter{Window: w, CompanyID: company.ID}
	base.Messages = &models.MessageFilter{Window: w, ParticipantID: company.OwnerID}
	return base
}

func institutionScope(base models.Scope, institution *models.Institution) models.Scope {
	w := base.Window
	base.OwnerKind = models.OwnerInstitution
	base.OwnerID = institution.ID
	base.Enrollments = &models.EnrollmentFilter{Window: w, InstitutionID: institution.ID}
	base.Certificates = &models.CertificateFilter{Window: w, InstitutionID: institution.ID}
	base.Profiles = &models.ProfileFilter{Window: w, InstitutionID: institution.ID}
	base.Messages = &models.MessageFilter{Window: w, ParticipantID: institution.AdminID}
	return base
}

func subjectScope(base models.Scope, userID string) models.Scope {
	w := base.Window
	base.OwnerKind = models.OwnerSubject
	base.OwnerID = userID
	base.Applications = &models.ApplicationFilter{Window: w, ApplicantID: userID}
	base.Enrollments = &models.EnrollmentFilter{Window: w, StudentID: userID}
	base.BusinessPlans = &models.BusinessPlanFilter{Window: w, OwnerID: userID}
	base.Profiles = &models.ProfileFilter{Window: w, UserID: userID}
	base.Messages = &models.MessageFilter{Window: w, ParticipantID: userID}
	base.Certificates = &models.CertificateFilter{Window: w, StudentID: userID}
	return base
}
