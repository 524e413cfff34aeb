package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/policy"
	"github.com/sgea/event-attendance/internal/queue"
	"github.com/sgea/event-attendance/internal/repository"
)

// Certifier manages attendance confirmation and certificates.
// Confirming presence and issuing the certificate are one atomic
// transition: the certificate exists from the first moment presence
// flips to confirmed, and only that first transition triggers the
// audit entries and the notification.  Certificates render from the
// registration's frozen snapshot only.
type Certifier struct {
	events EventStore
	regs   RegistrationStore
	audit  *Audit
	notify Notifier
	now    func() time.Time
}

// NewCertifier constructs the attendance certifier service.
func NewCertifier(events EventStore, regs RegistrationStore, audit *Audit, notify Notifier) *Certifier {
	if events == nil || regs == nil || audit == nil {
		panic("nil dependency passed to NewCertifier")
	}
	return &Certifier{events: events, regs: regs, audit: audit, notify: notify, now: time.Now}
}

// ConfirmPresence sets or clears a registration's attendance flag on
// behalf of the event owner or an elevated role.  Setting it on a
// registration that already holds a certificate is a no-op; clearing
// it revokes the certificate but keeps the frozen snapshot, so a
// later re-confirmation issues against the same text.
func (c *Certifier) ConfirmPresence(ctx context.Context, caller policy.Actor, regID uint64, present bool) (*model.Registration, error) {
	reg, err := c.regs.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return nil, notFound("registration not found")
		}
		return nil, err
	}
	res := policy.Resource{}
	if reg.EventID != nil {
		if ev, err := c.events.GetByID(ctx, *reg.EventID); err == nil {
			res.OwnerID = ev.OwnerID
		}
	}
	if !policy.Allows(caller, policy.PresenceConfirm, res) {
		return nil, authorization("you are not allowed to confirm presence for this registration")
	}

	if present {
		first, err := c.regs.ConfirmAndIssue(ctx, regID, c.now())
		if err != nil {
			return nil, err
		}
		if first {
			_ = c.audit.Record(ctx, caller.ID, model.AuditPresenceConfirmed, fmt.Sprintf("registration_id=%d", regID))
			_ = c.audit.Record(ctx, caller.ID, model.AuditCertGenerated, fmt.Sprintf("registration_id=%d", regID))
			c.notifyIssued(ctx, reg)
		}
	} else {
		if err := c.regs.Revoke(ctx, regID); err != nil {
			return nil, err
		}
		if reg.PresenceConfirmed {
			_ = c.audit.Record(ctx, caller.ID, model.AuditPresenceRevoked, fmt.Sprintf("registration_id=%d", regID))
		}
	}
	return c.regs.GetByID(ctx, regID)
}

// ConfirmByCode is the participant self-service path: after the
// event has ended, a registered participant submits the event's
// confirmation code to mark their own attendance.  Matching is
// exact after trimming and uppercasing.  Re-submitting a valid code
// is a harmless no-op.
func (c *Certifier) ConfirmByCode(ctx context.Context, caller policy.Actor, eventID uint64, code string) (*model.Registration, error) {
	ev, err := c.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	if c.now().Before(ev.EndsAt) {
		return nil, schedule("event has not finished yet")
	}
	submitted := strings.ToUpper(strings.TrimSpace(code))
	if submitted == "" || ev.ConfirmationCode == nil || submitted != *ev.ConfirmationCode {
		return nil, invalidCode("invalid confirmation code")
	}

	reg, err := c.findRegistration(ctx, caller.ID, eventID)
	if err != nil {
		return nil, err
	}
	first, err := c.regs.ConfirmAndIssue(ctx, reg.ID, c.now())
	if err != nil {
		return nil, err
	}
	if first {
		_ = c.audit.Record(ctx, caller.ID, model.AuditPresenceByCode, fmt.Sprintf("registration_id=%d event_id=%d", reg.ID, eventID))
		_ = c.audit.Record(ctx, caller.ID, model.AuditCertGenerated, fmt.Sprintf("registration_id=%d", reg.ID))
		c.notifyIssued(ctx, reg)
	}
	return c.regs.GetByID(ctx, reg.ID)
}

func (c *Certifier) findRegistration(ctx context.Context, participantID, eventID uint64) (*model.Registration, error) {
	regs, err := c.regs.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	for i := range regs {
		if regs[i].EventID != nil && *regs[i].EventID == eventID {
			return &regs[i], nil
		}
	}
	return nil, notFound("you are not registered for this event")
}

// RenderCertificate returns the certificate for a registration,
// built exclusively from the frozen snapshot.  Participants see
// their own; elevated roles see any.  Requesting a certificate that
// has not been issued yet is a distinct, recoverable condition.
func (c *Certifier) RenderCertificate(ctx context.Context, caller policy.Actor, regID uint64) (*model.Certificate, error) {
	reg, err := c.regs.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return nil, notFound("registration not found")
		}
		return nil, err
	}
	if !policy.Allows(caller, policy.CertificateView, policy.Resource{ParticipantID: reg.ParticipantID}) {
		return nil, authorization("you are not allowed to view this certificate")
	}
	if !reg.CertificateIssued || reg.CertIssuedAt == nil ||
		reg.CertEventName == nil || reg.CertStartsAt == nil ||
		reg.CertVenue == nil || reg.CertDurationMinutes == nil {
		return nil, notAvailable("certificate not available for this registration")
	}
	cert := &model.Certificate{
		RegistrationID:  reg.ID,
		ParticipantName: strings.TrimSpace(reg.FirstName + " " + reg.LastName),
		EventName:       *reg.CertEventName,
		StartsAt:        *reg.CertStartsAt,
		Venue:           *reg.CertVenue,
		DurationMinutes: *reg.CertDurationMinutes,
		Duration:        model.FormatDuration(*reg.CertDurationMinutes),
		IssuedAt:        *reg.CertIssuedAt,
	}
	_ = c.audit.Record(ctx, caller.ID, model.AuditCertViewed, fmt.Sprintf("registration_id=%d", regID))
	return cert, nil
}

func (c *Certifier) notifyIssued(ctx context.Context, reg *model.Registration) {
	if c.notify == nil {
		return
	}
	title := ""
	if reg.CertEventName != nil {
		title = *reg.CertEventName
	}
	msg := queue.CertificateIssued{
		RegistrationID: reg.ID,
		EventTitle:     title,
		IssuedAt:       c.now().Format(time.RFC3339),
		Participant: queue.Recipient{
			Email: reg.Email,
			Name:  strings.TrimSpace(reg.FirstName + " " + reg.LastName),
		},
	}
	if err := c.notify.CertificateIssued(ctx, msg); err != nil {
		log.Printf("certifier: publishing certificate notification %d: %v", reg.ID, err)
	}
}
