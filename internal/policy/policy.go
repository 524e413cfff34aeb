// Package policy resolves authorization decisions for the core
// services.  It maps (actor, action, resource) to an allow/deny
// boolean as a pure function over role tags and ownership, so the
// rules can be tested in isolation instead of being scattered as
// ad-hoc role predicates across handlers.
package policy

import "github.com/sgea/event-attendance/internal/model"

// Action identifies an operation subject to an authorization check.
type Action string

const (
	EventCreate      Action = "event.create"
	EventEdit        Action = "event.edit"
	EventDelete      Action = "event.delete"
	EventIssueCode   Action = "event.issue_code"
	EventAttendees   Action = "event.attendees"
	RegistrationOwn  Action = "registration.create"
	RegistrationDrop Action = "registration.cancel"
	PresenceConfirm  Action = "presence.confirm"
	CertificateView  Action = "certificate.view"
	AuditView        Action = "audit.view"
	AuditPurge       Action = "audit.purge"
)

// Actor is the authenticated identity performing an action.
type Actor struct {
	ID   uint64
	Role string
}

// Resource carries the ownership facts relevant to a decision.
// OwnerID is the owning user of the event involved (zero when the
// event is gone or not involved).  ParticipantID is the participant
// a registration or certificate belongs to (zero when not involved).
type Resource struct {
	OwnerID       uint64
	ParticipantID uint64
}

// Allows reports whether the actor may perform the action on the
// resource.  Staff and organizers are the elevated roles; teachers
// are scoped to events they own; participants only act on their own
// registrations.
func Allows(actor Actor, action Action, res Resource) bool {
	elevated := actor.Role == model.RoleStaff || actor.Role == model.RoleOrganizer
	owner := actor.Role == model.RoleTeacher && res.OwnerID != 0 && res.OwnerID == actor.ID
	self := res.ParticipantID != 0 && res.ParticipantID == actor.ID

	switch action {
	case EventCreate:
		// Organizers own events; staff may create on their behalf.
		// Teachers do not create events themselves.
		return elevated
	case EventEdit, EventDelete, EventIssueCode, EventAttendees, PresenceConfirm:
		return elevated || owner
	case RegistrationOwn:
		// Organizers cannot be participants.
		return actor.Role != model.RoleOrganizer
	case RegistrationDrop:
		return elevated || owner || self
	case CertificateView:
		return elevated || self
	case AuditView, AuditPurge:
		return elevated
	}
	return false
}

// AllowsActAs reports whether caller may perform an operation as
// the named target participant.  Only elevated roles may delegate,
// and the target must match the participant on the resource being
// acted upon: no impersonation of arbitrary identities.
func AllowsActAs(caller Actor, targetID uint64, res Resource) bool {
	if caller.ID == targetID {
		return true
	}
	if caller.Role != model.RoleStaff && caller.Role != model.RoleOrganizer {
		return false
	}
	return res.ParticipantID == 0 || res.ParticipantID == targetID
}
