package model

import "time"

// Registration is a participant's enrollment record for an event.
// The event reference is nullable: when an event is deleted the
// reference is cleared rather than cascading, so certificates
// survive independently of the event's lifecycle.  Contact fields
// are captured from the participant's profile at registration time
// and never re-read from the live user record afterwards.
//
// The certificate snapshot columns (CertEventName, CertStartsAt,
// CertVenue, CertDurationMinutes) hold a frozen copy of the
// event's descriptive fields captured at registration time.
// Certificates render exclusively from this snapshot, so the text
// stays stable even if the event is later edited or deleted.
// CertIssuedAt is set only when a certificate is actually issued.
//
// Fields:
//  ID                  – primary key identifier.
//  EventID             – event being registered for (nullable).
//  ParticipantID       – user who registered (cascades with the user).
//  RegisteredAt        – when the registration was created.
//  Email               – participant email at registration time.
//  FirstName           – participant first name at registration time.
//  LastName            – participant last name at registration time.
//  Phone               – participant phone at registration time.
//  PresenceConfirmed   – attendance flag.
//  CertificateIssued   – certificate flag; set together with
//                        PresenceConfirmed on first confirmation.
//  CertEventName       – frozen event title.
//  CertStartsAt        – frozen event start time.
//  CertVenue           – frozen event venue.
//  CertDurationMinutes – frozen event duration.
//  CertIssuedAt        – when the certificate was issued (nullable).
type Registration struct {
	ID                  uint64     // registrations.id
	EventID             *uint64    // registrations.event_id (nullable)
	ParticipantID       uint64     // registrations.participant_id
	RegisteredAt        time.Time  // registrations.registered_at
	Email               string     // registrations.email
	FirstName           string     // registrations.first_name
	LastName            string     // registrations.last_name
	Phone               string     // registrations.phone
	PresenceConfirmed   bool       // registrations.presence_confirmed
	CertificateIssued   bool       // registrations.certificate_issued
	CertEventName       *string    // registrations.cert_event_name (nullable)
	CertStartsAt        *time.Time // registrations.cert_starts_at (nullable)
	CertVenue           *string    // registrations.cert_venue (nullable)
	CertDurationMinutes *uint32    // registrations.cert_duration_minutes (nullable)
	CertIssuedAt        *time.Time // registrations.cert_issued_at (nullable)
}

// Certificate is the rendered view of an issued certificate. It is
// built from a registration's frozen snapshot only, never from the
// live event row.
type Certificate struct {
	RegistrationID  uint64    `json:"registration_id"`
	ParticipantName string    `json:"participant_name"`
	EventName       string    `json:"event_name"`
	StartsAt        time.Time `json:"starts_at"`
	Venue           string    `json:"venue"`
	DurationMinutes uint32    `json:"duration_minutes"`
	Duration        string    `json:"duration"`
	IssuedAt        time.Time `json:"issued_at"`
}
