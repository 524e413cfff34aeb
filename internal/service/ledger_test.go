package service

import (
	"context"
	"testing"
	"time"

	"github.com/sgea/event-attendance/internal/model"
)

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(1, model.RoleTeacher)
	ev := e.addEvent(1, 30, 24*time.Hour, 2*time.Hour)
	participant := e.actor(5, model.RoleParticipant)

	reg, err := e.ledger.Register(ctx, participant, ev.ID, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.EventID == nil || *reg.EventID != ev.ID {
		t.Error("registration not linked to the event")
	}
	if reg.Email != "user5@example.com" || reg.LastName != "Number5" {
		t.Errorf("contact snapshot = %q %q", reg.Email, reg.LastName)
	}
	if reg.CertEventName == nil || *reg.CertEventName != ev.Title {
		t.Error("certificate snapshot not captured at registration")
	}
	if reg.CertDurationMinutes == nil || *reg.CertDurationMinutes != 120 {
		t.Error("duration snapshot not captured at registration")
	}
	if reg.PresenceConfirmed || reg.CertificateIssued {
		t.Error("fresh registration must start unconfirmed")
	}
	if len(e.notify.registrations) != 1 {
		t.Errorf("published %d registration notifications, want 1", len(e.notify.registrations))
	}
	if got := e.store.auditActions(); len(got) != 1 || got[0] != model.AuditRegistered {
		t.Errorf("audit actions = %v", got)
	}
}

func TestRegisterSnapshotSurvivesEventEdit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff := e.actor(1, model.RoleStaff)
	ev := e.addEvent(staff.ID, 30, 24*time.Hour, time.Hour)
	participant := e.actor(5, model.RoleParticipant)
	reg, err := e.ledger.Register(ctx, participant, ev.ID, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	in := validInput(e)
	in.Title = "Completely Different Title"
	if _, err := e.catalog.EditEvent(ctx, staff, ev.ID, in); err != nil {
		t.Fatalf("EditEvent: %v", err)
	}
	got := e.store.regs[reg.ID]
	if *got.CertEventName != "Go Workshop" {
		t.Errorf("snapshot changed to %q after event edit", *got.CertEventName)
	}
}

func TestRegisterScheduleGating(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(1, model.RoleTeacher)
	participant := e.actor(5, model.RoleParticipant)

	started := e.addEvent(1, 30, -time.Hour, 3*time.Hour)
	if _, err := e.ledger.Register(ctx, participant, started.ID, 0); KindOf(err) != KindSchedule {
		t.Errorf("started event: kind = %v, want schedule", KindOf(err))
	}

	finished := e.addEvent(1, 30, -5*time.Hour, time.Hour)
	if _, err := e.ledger.Register(ctx, participant, finished.ID, 0); KindOf(err) != KindSchedule {
		t.Errorf("finished event: kind = %v, want schedule", KindOf(err))
	}

	// Boundary: registration closes exactly at the start instant.
	atStart := e.addEvent(1, 30, 0, time.Hour)
	if _, err := e.ledger.Register(ctx, participant, atStart.ID, 0); KindOf(err) != KindSchedule {
		t.Errorf("event starting now: kind = %v, want schedule", KindOf(err))
	}
}

func TestRegisterCapacityAndDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(1, model.RoleTeacher)
	ev := e.addEvent(1, 2, 24*time.Hour, time.Hour)

	first := e.actor(5, model.RoleParticipant)
	if _, err := e.ledger.Register(ctx, first, ev.ID, 0); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := e.ledger.Register(ctx, first, ev.ID, 0); KindOf(err) != KindConflict {
		t.Errorf("duplicate: kind = %v, want conflict", KindOf(err))
	}
	second := e.actor(6, model.RoleParticipant)
	if _, err := e.ledger.Register(ctx, second, ev.ID, 0); err != nil {
		t.Fatalf("second registration: %v", err)
	}
	third := e.actor(7, model.RoleParticipant)
	if _, err := e.ledger.Register(ctx, third, ev.ID, 0); KindOf(err) != KindCapacity {
		t.Errorf("full event: kind = %v, want capacity", KindOf(err))
	}
}

func TestRegisterActAs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff := e.actor(1, model.RoleStaff)
	ev := e.addEvent(staff.ID, 30, 24*time.Hour, time.Hour)
	target := e.addUser(5, model.RoleParticipant)

	reg, err := e.ledger.Register(ctx, staff, ev.ID, target.ID)
	if err != nil {
		t.Fatalf("staff act-as register: %v", err)
	}
	if reg.ParticipantID != target.ID {
		t.Errorf("participant = %d, want %d", reg.ParticipantID, target.ID)
	}

	// A participant cannot register someone else.
	other := e.actor(6, model.RoleParticipant)
	stranger := e.addUser(7, model.RoleParticipant)
	if _, err := e.ledger.Register(ctx, other, ev.ID, stranger.ID); KindOf(err) != KindAuthorization {
		t.Errorf("participant act-as: kind = %v, want authorization", KindOf(err))
	}

	// Organizers hold events, they do not attend them.
	organizer := e.addUser(8, model.RoleOrganizer)
	if _, err := e.ledger.Register(ctx, staff, ev.ID, organizer.ID); KindOf(err) != KindAuthorization {
		t.Errorf("registering an organizer: kind = %v, want authorization", KindOf(err))
	}

	if _, err := e.ledger.Register(ctx, staff, ev.ID, 999); KindOf(err) != KindNotFound {
		t.Errorf("unknown participant: kind = %v, want not_found", KindOf(err))
	}
	if _, err := e.ledger.Register(ctx, staff, 999, target.ID); KindOf(err) != KindNotFound {
		t.Errorf("unknown event: kind = %v, want not_found", KindOf(err))
	}
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teacher := e.actor(2, model.RoleTeacher)
	ev := e.addEvent(teacher.ID, 30, 24*time.Hour, time.Hour)
	participant := e.actor(5, model.RoleParticipant)
	reg, err := e.ledger.Register(ctx, participant, ev.ID, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	stranger := e.actor(6, model.RoleParticipant)
	if err := e.ledger.Cancel(ctx, stranger, reg.ID); KindOf(err) != KindAuthorization {
		t.Errorf("stranger cancel: kind = %v, want authorization", KindOf(err))
	}
	if err := e.ledger.Cancel(ctx, participant, reg.ID); err != nil {
		t.Fatalf("self cancel: %v", err)
	}
	if _, ok := e.store.regs[reg.ID]; ok {
		t.Error("registration must be hard-deleted")
	}
	if err := e.ledger.Cancel(ctx, participant, reg.ID); KindOf(err) != KindNotFound {
		t.Errorf("repeat cancel: kind = %v, want not_found", KindOf(err))
	}

	// Owner may drop attendees from their own event.
	reg2, err := e.ledger.Register(ctx, participant, ev.ID, 0)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := e.ledger.Cancel(ctx, teacher, reg2.ID); err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
}

func TestMyRegistrations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(1, model.RoleTeacher)
	ev1 := e.addEvent(1, 30, 24*time.Hour, time.Hour)
	ev2 := e.addEvent(1, 30, 48*time.Hour, time.Hour)
	participant := e.actor(5, model.RoleParticipant)
	for _, ev := range []*model.Event{ev1, ev2} {
		if _, err := e.ledger.Register(ctx, participant, ev.ID, 0); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	regs, err := e.ledger.MyRegistrations(ctx, participant, 0)
	if err != nil {
		t.Fatalf("MyRegistrations: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("got %d registrations, want 2", len(regs))
	}

	staff := e.actor(1, model.RoleStaff)
	if _, err := e.ledger.MyRegistrations(ctx, staff, participant.ID); err != nil {
		t.Errorf("staff viewing a participant's registrations: %v", err)
	}
	other := e.actor(6, model.RoleParticipant)
	if _, err := e.ledger.MyRegistrations(ctx, other, participant.ID); KindOf(err) != KindAuthorization {
		t.Errorf("peer viewing registrations: kind = %v, want authorization", KindOf(err))
	}
}

func TestAttendees(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teacher := e.actor(2, model.RoleTeacher)
	ev := e.addEvent(teacher.ID, 30, 24*time.Hour, time.Hour)
	participant := e.actor(5, model.RoleParticipant)
	if _, err := e.ledger.Register(ctx, participant, ev.ID, 0); err != nil {
		t.Fatalf("Register: %v", err)
	}

	list, err := e.ledger.Attendees(ctx, teacher, ev.ID)
	if err != nil {
		t.Fatalf("Attendees: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d attendees, want 1", len(list))
	}
	if list[0].Name != "User Number5" || list[0].Email != "user5@example.com" {
		t.Errorf("attendee = %+v", list[0])
	}
	if got := e.store.auditActions(); got[len(got)-1] != model.AuditAttendeesViewed {
		t.Errorf("last audit action = %q, want attendees-viewed", got[len(got)-1])
	}

	if _, err := e.ledger.Attendees(ctx, participant, ev.ID); KindOf(err) != KindAuthorization {
		t.Errorf("participant listing attendees: kind = %v, want authorization", KindOf(err))
	}
}
