package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/audit"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
)

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
	audit  audit.Recorder
}

func NewService(repo Repository, tokens *auth.TokenIssuer, recorder audit.Recorder) *Service {
	return &Service{repo: repo, tokens: tokens, audit: recorder}
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Email      string
	Password   string
	FamilyName string
	GivenName  string
	FacilityID uuid.UUID
}

// Register creates an inactive clinician account. An admin of the facility
// activates it before the first login.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.GivenName = strings.TrimSpace(in.GivenName)

	if in.Email == "" {
		return nil, apperr.New(apperr.KindValidation, "email is required")
	}
	if in.FamilyName == "" || in.GivenName == "" {
		return nil, apperr.New(apperr.KindValidation, "family_name and given_name are required")
	}
	if in.FacilityID == uuid.Nil {
		return nil, apperr.New(apperr.KindValidation, "facility_id is required")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	facility := in.FacilityID
	u := &User{
		Email:        in.Email,
		PasswordHash: hash,
		FamilyName:   in.FamilyName,
		GivenName:    in.GivenName,
		Role:         authz.RoleClinician,
		IsActive:     false,
		FacilityID:   &facility,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "user.register",
		Resource:   "users",
		ResourceID: &u.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return u, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		// Infrastructure failure, not a credential problem.
		return "", nil, apperr.Wrap(apperr.KindInternal, "look up account", err)
	}
	if err != nil || !auth.VerifyPassword(u.PasswordHash, password) {
		s.audit.Record(ctx, audit.Entry{
			Action:   "user.login",
			Resource: "users",
			Outcome:  audit.OutcomeFailure,
		})
		return "", nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		s.audit.Record(ctx, audit.Entry{
			Action:     "user.login",
			Resource:   "users",
			ResourceID: &u.ID,
			Outcome:    audit.OutcomeDenied,
		})
		return "", nil, apperr.New(apperr.KindForbidden, "account is pending admin approval")
	}

	token, err := s.tokens.Issue(auth.Identity{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		GivenName:  u.GivenName,
		FamilyName: u.FamilyName,
		FacilityID: u.FacilityID,
	})
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, "issue token", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     "user.login",
		Resource:   "users",
		ResourceID: &u.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return token, u, nil
}

// Me returns the account behind the authenticated actor.
func (s *Service) Me(ctx context.Context, actor authz.Actor) (*User, error) {
	return s.repo.GetByID(ctx, actor.ID)
}

func (s *Service) listScope(actor authz.Actor) (Scope, error) {
	if !actor.CanListUsers() {
		return Scope{}, apperr.New(apperr.KindForbidden, "admin access required")
	}
	if actor.IsSuperAdmin() {
		return Scope{All: true}, nil
	}
	return Scope{FacilityID: actor.FacilityID}, nil
}

// List returns the user directory visible to the actor.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]*User, error) {
	scope, err := s.listScope(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, false)
}

// ListPending returns accounts awaiting approval, scoped like List.
func (s *Service) ListPending(ctx context.Context, actor authz.Actor) ([]*User, error) {
	scope, err := s.listScope(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, true)
}

// SetActive approves or suspends the target account.
func (s *Service) SetActive(ctx context.Context, actor authz.Actor, id uuid.UUID, active bool) (*User, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSetUserStatus(target.FacilityID) {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to manage this user")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	target.IsActive = active

	action := "user.suspend"
	if active {
		action = "user.approve"
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		Resource:   "users",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return target, nil
}

// SetRole changes the target account's role.
func (s *Service) SetRole(ctx context.Context, actor authz.Actor, id uuid.UUID, roleStr string) (*User, error) {
	role, err := authz.ParseRole(roleStr)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSetRole(target.FacilityID, role) {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to set this role")
	}
	if err := s.repo.SetRole(ctx, id, string(role)); err != nil {
		return nil, err
	}
	target.Role = role

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "user.set_role",
		Resource:   "users",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"role": string(role)},
	})
	return target, nil
}

// SetFacility moves the target account to another facility, or detaches it
// when facilityID is nil.
func (s *Service) SetFacility(ctx context.Context, actor authz.Actor, id uuid.UUID, facilityID *uuid.UUID) (*User, error) {
	if !actor.CanAssignFacility() {
		return nil, apperr.New(apperr.KindForbidden, "facility assignment requires platform admin")
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetFacility(ctx, id, facilityID); err != nil {
		return nil, err
	}
	target.FacilityID = facilityID

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "user.set_facility",
		Resource:   "users",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return target, nil
}
