// Package queue defines message payloads exchanged over the
// message broker and the consumer delivering them.  The core
// publishes at three well-defined trigger points: registration
// created, confirmation code issued with the send flag, and
// certificate issued.  Delivery is fire-and-forget; failures never
// reach the primary request path.
package queue

// Queue names.  One durable queue per trigger point.
const (
	RegistrationCreatedQueue = "registration.created"
	CodeIssuedQueue          = "code.issued"
	CertificateIssuedQueue   = "certificate.issued"
)

// Recipient identifies one mail recipient.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// RegistrationCreated is published when a registration is created.
type RegistrationCreated struct {
	RegistrationID uint64    `json:"registration_id"`
	EventID        uint64    `json:"event_id"`
	EventTitle     string    `json:"event_title"`
	Venue          string    `json:"venue"`
	StartsAt       string    `json:"starts_at"`
	EndsAt         string    `json:"ends_at"`
	Participant    Recipient `json:"participant"`
}

// ConfirmationCodeIssued is published when a confirmation code is
// generated with the send flag, fanning the code out to everyone
// registered for the event.
type ConfirmationCodeIssued struct {
	EventID    uint64      `json:"event_id"`
	EventTitle string      `json:"event_title"`
	Code       string      `json:"code"`
	Recipients []Recipient `json:"recipients"`
}

// CertificateIssued is published when a certificate is issued so
// the participant can be told it is ready.
type CertificateIssued struct {
	RegistrationID uint64    `json:"registration_id"`
	EventTitle     string    `json:"event_title"`
	IssuedAt       string    `json:"issued_at"`
	Participant    Recipient `json:"participant"`
}
