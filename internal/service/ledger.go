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

// Ledger manages registrations: enrolling participants in events,
// cancelling, and listing.  Capacity and duplicate protection are
// enforced atomically by the registration store; the ledger adds the
// schedule gating, authorization and snapshot capture around them.
type Ledger struct {
	events EventStore
	regs   RegistrationStore
	users  UserStore
	audit  *Audit
	notify Notifier
	now    func() time.Time
}

// NewLedger constructs the registration ledger service.
func NewLedger(events EventStore, regs RegistrationStore, users UserStore, audit *Audit, notify Notifier) *Ledger {
	if events == nil || regs == nil || users == nil || audit == nil {
		panic("nil dependency passed to NewLedger")
	}
	return &Ledger{events: events, regs: regs, users: users, audit: audit, notify: notify, now: time.Now}
}

// Register enrolls a participant in an event.  participantID zero
// means the caller registers themselves; a nonzero value is an
// act-as request that only elevated roles may make.  Contact fields
// and the certificate snapshot are frozen from the participant
// profile and the event at this moment and never re-read later.
func (l *Ledger) Register(ctx context.Context, caller policy.Actor, eventID, participantID uint64) (*model.Registration, error) {
	target := participantID
	if target == 0 {
		target = caller.ID
	}
	if !policy.AllowsActAs(caller, target, policy.Resource{ParticipantID: target}) {
		return nil, authorization("you are not allowed to register other participants")
	}

	ev, err := l.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	now := l.now()
	if !now.Before(ev.EndsAt) {
		return nil, schedule("event has already finished")
	}
	if !now.Before(ev.StartsAt) {
		return nil, schedule("event has already started")
	}

	user, err := l.users.GetByID(ctx, target)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("participant not found")
		}
		return nil, err
	}
	participant := policy.Actor{ID: user.ID, Role: user.Role}
	if !policy.Allows(participant, policy.RegistrationOwn, policy.Resource{}) {
		return nil, authorization("this account cannot register for events")
	}

	reg := &model.Registration{
		EventID:             &ev.ID,
		ParticipantID:       user.ID,
		Email:               user.Email,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		Phone:               user.Phone,
		CertEventName:       &ev.Title,
		CertStartsAt:        &ev.StartsAt,
		CertVenue:           &ev.Venue,
		CertDurationMinutes: &ev.DurationMinutes,
	}
	if err := l.regs.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityFull):
			return nil, capacity("event is full")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, conflict("already registered for this event")
		}
		return nil, err
	}

	detail := fmt.Sprintf("event_id=%d participant_id=%d", ev.ID, user.ID)
	if caller.ID != user.ID {
		detail += fmt.Sprintf(" by=%d", caller.ID)
	}
	_ = l.audit.Record(ctx, caller.ID, model.AuditRegistered, detail)

	if l.notify != nil {
		msg := queue.RegistrationCreated{
			RegistrationID: reg.ID,
			EventID:        ev.ID,
			EventTitle:     ev.Title,
			Venue:          ev.Venue,
			StartsAt:       ev.StartsAt.Format(time.RFC3339),
			EndsAt:         ev.EndsAt.Format(time.RFC3339),
			Participant:    queue.Recipient{Email: user.Email, Name: user.FullName()},
		}
		if err := l.notify.RegistrationCreated(ctx, msg); err != nil {
			log.Printf("ledger: publishing registration notification %d: %v", reg.ID, err)
		}
	}
	return reg, nil
}

// Cancel removes a registration.  Participants drop their own;
// owners and elevated roles may drop anyone's on their events.  The
// row is deleted outright, certificates included.
func (l *Ledger) Cancel(ctx context.Context, caller policy.Actor, regID uint64) error {
	reg, err := l.regs.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return notFound("registration not found")
		}
		return err
	}
	res := policy.Resource{ParticipantID: reg.ParticipantID}
	if reg.EventID != nil {
		if ev, err := l.events.GetByID(ctx, *reg.EventID); err == nil {
			res.OwnerID = ev.OwnerID
		}
	}
	if !policy.Allows(caller, policy.RegistrationDrop, res) {
		return authorization("you are not allowed to cancel this registration")
	}
	if err := l.regs.Delete(ctx, regID); err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return notFound("registration not found")
		}
		return err
	}
	detail := fmt.Sprintf("registration_id=%d participant_id=%d", regID, reg.ParticipantID)
	if caller.ID != reg.ParticipantID {
		detail += fmt.Sprintf(" by=%d", caller.ID)
	}
	_ = l.audit.Record(ctx, caller.ID, model.AuditCancelled, detail)
	return nil
}

// MyRegistrations lists a participant's registrations, their own by
// default.  Elevated roles may pass another participant's id.
func (l *Ledger) MyRegistrations(ctx context.Context, caller policy.Actor, participantID uint64) ([]model.Registration, error) {
	target := participantID
	if target == 0 {
		target = caller.ID
	}
	if !policy.AllowsActAs(caller, target, policy.Resource{ParticipantID: target}) {
		return nil, authorization("you are not allowed to view these registrations")
	}
	return l.regs.ListByParticipant(ctx, target)
}

// Attendee is one row of an event's attendee list.
type Attendee struct {
	RegistrationID    uint64    `json:"registration_id"`
	ParticipantID     uint64    `json:"participant_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	RegisteredAt      time.Time `json:"registered_at"`
	PresenceConfirmed bool      `json:"presence_confirmed"`
	CertificateIssued bool      `json:"certificate_issued"`
}

// Attendees lists who is registered for an event, for the event's
// owner or an elevated role.  The access is audited.
func (l *Ledger) Attendees(ctx context.Context, caller policy.Actor, eventID uint64) ([]Attendee, error) {
	ev, err := l.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	if !policy.Allows(caller, policy.EventAttendees, policy.Resource{OwnerID: ev.OwnerID}) {
		return nil, authorization("you are not allowed to view attendees for this event")
	}
	regs, err := l.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]Attendee, 0, len(regs))
	for _, r := range regs {
		out = append(out, Attendee{
			RegistrationID:    r.ID,
			ParticipantID:     r.ParticipantID,
			Name:              strings.TrimSpace(r.FirstName + " " + r.LastName),
			Email:             r.Email,
			Phone:             r.Phone,
			RegisteredAt:      r.RegisteredAt,
			PresenceConfirmed: r.PresenceConfirmed,
			CertificateIssued: r.CertificateIssued,
		})
	}
	_ = l.audit.Record(ctx, caller.ID, model.AuditAttendeesViewed, fmt.Sprintf("event_id=%d", eventID))
	return out, nil
}
