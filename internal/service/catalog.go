package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/policy"
	"github.com/sgea/event-attendance/internal/queue"
	"github.com/sgea/event-attendance/internal/repository"
	"github.com/sgea/event-attendance/internal/utils"
)

const (
	confirmationCodeLength  = 8
	confirmationCodeRetries = 10
)

// Catalog manages the event lifecycle: create, edit, delete, listing
// and confirmation-code issuance.
type Catalog struct {
	events EventStore
	regs   RegistrationStore
	audit  *Audit
	notify Notifier
	tx     TxRunner
	now    func() time.Time
}

// NewCatalog constructs the catalog service.
func NewCatalog(events EventStore, regs RegistrationStore, audit *Audit, notify Notifier, tx TxRunner) *Catalog {
	if events == nil || regs == nil || audit == nil || tx == nil {
		panic("nil dependency passed to NewCatalog")
	}
	return &Catalog{events: events, regs: regs, audit: audit, notify: notify, tx: tx, now: time.Now}
}

// EventInput carries the caller-supplied fields for creating or
// editing an event.  OwnerID is optional on create and defaults to
// the acting user; BannerURL nil on edit keeps the stored banner.
type EventInput struct {
	Title       string
	Description string
	Venue       string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    uint32
	BannerURL   *string
	OwnerID     uint64
}

// EventView is an event enriched with its registration count and a
// readable duration label for listings.
type EventView struct {
	Event      model.Event
	Registered uint32
	Duration   string
}

func (c *Catalog) validateInput(in EventInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return validation("title", "title is required")
	}
	if strings.TrimSpace(in.Venue) == "" {
		return validation("venue", "venue is required")
	}
	if in.Capacity == 0 {
		return validation("capacity", "capacity must be at least 1")
	}
	if !in.EndsAt.After(in.StartsAt) {
		return validation("ends_at", "end must be after start")
	}
	// Minute precision: creating an event for "now" must not fail
	// because seconds ticked by during form entry.
	if in.StartsAt.Before(c.now().Truncate(time.Minute)) {
		return validation("starts_at", "start must not be in the past")
	}
	return nil
}

func durationMinutes(start, end time.Time) uint32 {
	return uint32((end.Sub(start) + time.Minute/2) / time.Minute)
}

// CreateEvent validates the input and persists a new event.  Only
// elevated roles create events; the owner defaults to the actor but
// staff may assign ownership to another account.
func (c *Catalog) CreateEvent(ctx context.Context, actor policy.Actor, in EventInput) (*model.Event, error) {
	if !policy.Allows(actor, policy.EventCreate, policy.Resource{}) {
		return nil, authorization("you are not allowed to create events")
	}
	if err := c.validateInput(in); err != nil {
		return nil, err
	}
	owner := in.OwnerID
	if owner == 0 {
		owner = actor.ID
	}
	ev := &model.Event{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Venue:           strings.TrimSpace(in.Venue),
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		Capacity:        in.Capacity,
		DurationMinutes: durationMinutes(in.StartsAt, in.EndsAt),
		BannerURL:       in.BannerURL,
		OwnerID:         owner,
	}
	if err := c.events.Create(ctx, ev); err != nil {
		return nil, err
	}
	_ = c.audit.Record(ctx, actor.ID, model.AuditEventCreated, fmt.Sprintf("event_id=%d title=%q", ev.ID, ev.Title))
	return ev, nil
}

// EditEvent applies the input to an existing event.  The same
// validation as create applies; a nil banner keeps the stored one,
// and the duration is recomputed from the new schedule.
func (c *Catalog) EditEvent(ctx context.Context, actor policy.Actor, id uint64, in EventInput) (*model.Event, error) {
	ev, err := c.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	if !policy.Allows(actor, policy.EventEdit, policy.Resource{OwnerID: ev.OwnerID}) {
		return nil, authorization("you are not allowed to edit this event")
	}
	if err := c.validateInput(in); err != nil {
		return nil, err
	}
	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = in.Description
	ev.Venue = strings.TrimSpace(in.Venue)
	ev.StartsAt = in.StartsAt
	ev.EndsAt = in.EndsAt
	ev.Capacity = in.Capacity
	ev.DurationMinutes = durationMinutes(in.StartsAt, in.EndsAt)
	if in.BannerURL != nil {
		ev.BannerURL = in.BannerURL
	}
	if err := c.events.Update(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	_ = c.audit.Record(ctx, actor.ID, model.AuditEventUpdated, fmt.Sprintf("event_id=%d title=%q", ev.ID, ev.Title))
	return ev, nil
}

// DeleteEvent removes an event.  Inside one transaction it first
// backfills certificate snapshots onto every registration that lacks
// them and revokes issued certificates, then detaches the
// registrations, then deletes the event row.  Registrations
// themselves survive with a null event reference.
func (c *Catalog) DeleteEvent(ctx context.Context, actor policy.Actor, id uint64) error {
	ev, err := c.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return notFound("event not found")
		}
		return err
	}
	if !policy.Allows(actor, policy.EventDelete, policy.Resource{OwnerID: ev.OwnerID}) {
		return authorization("you are not allowed to delete this event")
	}
	err = c.tx.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := c.regs.PreserveEventSnapshotTx(ctx, tx, ev); err != nil {
			return err
		}
		if err := c.regs.DetachEventTx(ctx, tx, ev.ID); err != nil {
			return err
		}
		return c.events.DeleteTx(ctx, tx, ev.ID)
	})
	if err != nil {
		return err
	}
	_ = c.audit.Record(ctx, actor.ID, model.AuditEventDeleted, fmt.Sprintf("event_id=%d title=%q", ev.ID, ev.Title))
	return nil
}

// IssueConfirmationCode assigns the event its confirmation code.  A
// code is issued at most once per event; repeated calls return the
// existing code unchanged.  With send set, the code is fanned out to
// every registered participant through the notifier.
func (c *Catalog) IssueConfirmationCode(ctx context.Context, actor policy.Actor, id uint64, send bool) (string, error) {
	ev, err := c.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return "", notFound("event not found")
		}
		return "", err
	}
	if !policy.Allows(actor, policy.EventIssueCode, policy.Resource{OwnerID: ev.OwnerID}) {
		return "", authorization("you are not allowed to issue a code for this event")
	}

	code := ""
	if ev.ConfirmationCode != nil {
		code = *ev.ConfirmationCode
	} else {
		code, err = c.assignCode(ctx, ev.ID)
		if err != nil {
			return "", err
		}
		_ = c.audit.Record(ctx, actor.ID, model.AuditCodeGenerated, fmt.Sprintf("event_id=%d", ev.ID))
	}
	if send {
		c.sendCode(ctx, ev, code)
	}
	return code, nil
}

// assignCode draws fresh codes until one is unique across events.
// The unique index is the real guard; CodeExists just avoids burning
// retries on obvious collisions.
func (c *Catalog) assignCode(ctx context.Context, eventID uint64) (string, error) {
	for i := 0; i < confirmationCodeRetries; i++ {
		code, err := utils.NewConfirmationCode(confirmationCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := c.events.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		err = c.events.SetConfirmationCode(ctx, eventID, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if errors.Is(err, repository.ErrEventNotFound) {
			// Either the event vanished or a concurrent caller set a
			// code first; a re-read tells the two apart.
			ev, gerr := c.events.GetByID(ctx, eventID)
			if gerr != nil {
				return "", notFound("event not found")
			}
			if ev.ConfirmationCode != nil {
				return *ev.ConfirmationCode, nil
			}
		}
		return "", err
	}
	return "", internal("could not generate a unique confirmation code")
}

func (c *Catalog) sendCode(ctx context.Context, ev *model.Event, code string) {
	if c.notify == nil {
		return
	}
	regs, err := c.regs.ListByEvent(ctx, ev.ID)
	if err != nil {
		log.Printf("catalog: listing recipients for event %d: %v", ev.ID, err)
		return
	}
	recipients := make([]queue.Recipient, 0, len(regs))
	for _, r := range regs {
		recipients = append(recipients, queue.Recipient{
			Email: r.Email,
			Name:  strings.TrimSpace(r.FirstName + " " + r.LastName),
		})
	}
	if len(recipients) == 0 {
		return
	}
	msg := queue.ConfirmationCodeIssued{
		EventID:    ev.ID,
		EventTitle: ev.Title,
		Code:       code,
		Recipients: recipients,
	}
	if err := c.notify.ConfirmationCodeIssued(ctx, msg); err != nil {
		log.Printf("catalog: publishing code notification for event %d: %v", ev.ID, err)
	}
}

// GetEvent returns one event with its registration count.
func (c *Catalog) GetEvent(ctx context.Context, id uint64) (*EventView, error) {
	ev, err := c.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	count, err := c.regs.CountByEvent(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	return &EventView{Event: *ev, Registered: count, Duration: model.FormatDuration(ev.DurationMinutes)}, nil
}

// ListEvents returns all events with registration counts, soonest
// first as the repository orders them.
func (c *Catalog) ListEvents(ctx context.Context) ([]EventView, error) {
	events, err := c.events.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		count, err := c.regs.CountByEvent(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, EventView{Event: ev, Registered: count, Duration: model.FormatDuration(ev.DurationMinutes)})
	}
	return views, nil
}
