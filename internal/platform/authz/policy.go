// Package authz classifies authenticated actors into role tiers and answers
// the scope questions the domain services ask before touching a row. All
// predicates are pure functions of the actor and the target row's facility,
// so every rule is unit-testable without a database.
package authz

import (
	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// Role is the stored role of a user account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClinician Role = "clinician"
)

// ParseRole validates a role string from a request body.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleClinician:
		return Role(s), nil
	default:
		return "", apperr.Newf(apperr.KindValidation, "invalid role %q", s)
	}
}

// Actor is the authenticated principal attached to a request. An admin with
// no facility is the platform-level tier; an admin bound to a facility
// administers that facility only.
type Actor struct {
	ID         uuid.UUID
	Email      string
	Role       Role
	FacilityID *uuid.UUID
}

func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Actor) IsClinician() bool  { return a.Role == RoleClinician }
func (a Actor) IsSuperAdmin() bool { return a.Role == RoleAdmin && a.FacilityID == nil }

// IsFacilityAdmin reports whether the actor administers a single facility.
func (a Actor) IsFacilityAdmin() bool { return a.Role == RoleAdmin && a.FacilityID != nil }

// sameFacility compares two optional facility references.
func sameFacility(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// CanManageFacilities gates facility create/update/delete.
func (a Actor) CanManageFacilities() bool { return a.IsSuperAdmin() }

// CanListUsers gates the user directory.
func (a Actor) CanListUsers() bool { return a.IsAdmin() }

// CanViewUser reports whether the actor may read the target user's account.
// Facility admins see only accounts of their own facility.
func (a Actor) CanViewUser(targetFacility *uuid.UUID) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return a.IsFacilityAdmin() && sameFacility(a.FacilityID, targetFacility)
}

// CanSetUserStatus gates approve/suspend of the target user.
func (a Actor) CanSetUserStatus(targetFacility *uuid.UUID) bool {
	return a.CanViewUser(targetFacility)
}

// CanSetRole reports whether the actor may set the target user's role to
// newRole. Facility admins may only demote or keep users of their own
// facility as clinicians; promoting to admin is reserved for the platform
// tier so a facility cannot mint peers for itself.
func (a Actor) CanSetRole(targetFacility *uuid.UUID, newRole Role) bool {
	if a.IsSuperAdmin() {
		return true
	}
	if !a.IsFacilityAdmin() || !sameFacility(a.FacilityID, targetFacility) {
		return false
	}
	return newRole == RoleClinician
}

// CanAssignFacility gates moving a user between facilities.
func (a Actor) CanAssignFacility() bool { return a.IsSuperAdmin() }

// CanViewPatient reports whether the actor may read or write a patient row
// belonging to patientFacility.
func (a Actor) CanViewPatient(patientFacility *uuid.UUID) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return sameFacility(a.FacilityID, patientFacility)
}

// CreationFacility resolves the facility a new patient is written under.
// Non-platform actors always write into their own facility regardless of what
// the request asked for; the platform tier may target any facility or none,
// and an unscoped record stays visible to the platform tier only.
func (a Actor) CreationFacility(requested *uuid.UUID) (*uuid.UUID, error) {
	if a.IsSuperAdmin() {
		return requested, nil
	}
	if a.FacilityID == nil {
		return nil, apperr.New(apperr.KindForbidden, "account is not attached to a facility")
	}
	return a.FacilityID, nil
}

// PatientScope returns the facility filter for list and search queries.
// scoped=false means the actor sees every facility.
func (a Actor) PatientScope() (facility *uuid.UUID, scoped bool) {
	if a.IsSuperAdmin() {
		return nil, false
	}
	return a.FacilityID, true
}
