package model

import "time"

// AuditEntry is one row of the append-only audit trail.  Entries
// are never updated; the only deletion path is the administrative
// purge, which itself leaves a permanent marker entry referencing
// the backup artifact.  The actor reference is nullable so entries
// survive user deletion.
//
// Fields:
//  ID        – primary key identifier.
//  ActorID   – user who performed the action (nullable).
//  Action    – short action label, e.g. "Created event".
//  Detail    – free-text detail about the action.
//  CreatedAt – when the entry was recorded (immutable).
type AuditEntry struct {
	ID        uint64    // audit_entries.id
	ActorID   *uint64   // audit_entries.actor_id (nullable)
	Action    string    // audit_entries.action
	Detail    string    // audit_entries.detail
	CreatedAt time.Time // audit_entries.created_at
}

// Audit action labels shared by services and the trail itself.
// PurgeAction entries are never deletable by the purge operation.
const (
	AuditEventCreated      = "Created event"
	AuditEventUpdated      = "Updated event"
	AuditEventDeleted      = "Deleted event"
	AuditCodeGenerated     = "Generated confirmation code"
	AuditRegistered        = "Registration created"
	AuditCancelled         = "Cancelled registration"
	AuditPresenceConfirmed = "Confirmed presence"
	AuditPresenceByCode    = "Confirmed presence (by code)"
	AuditPresenceRevoked   = "Revoked presence"
	AuditCertGenerated     = "Generated certificate"
	AuditCertViewed        = "Viewed certificate"
	AuditAttendeesViewed   = "Viewed attendees"
	AuditTrailViewed       = "Viewed audit log"
	AuditTrailPurged       = "Purged audit log"
)
