package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/policy"
)

func actorOf(id uint64, role string) policy.Actor { return policy.Actor{ID: id, Role: role} }

func lower(s string) string { return strings.ToLower(s) }

// seedRegistration sets up an event owned by user 2 (teacher) with a
// registration for user 5 (participant), returning the env, the
// event and the registration.
func seedRegistration(t *testing.T) (*env, *model.Event, *model.Registration) {
	t.Helper()
	e := newEnv(t)
	ctx := context.Background()
	teacher := e.actor(2, model.RoleTeacher)
	ev := e.addEvent(teacher.ID, 30, 24*time.Hour, 2*time.Hour)
	participant := e.actor(5, model.RoleParticipant)
	reg, err := e.ledger.Register(ctx, participant, ev.ID, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	e.store.audits = nil
	e.notify.registrations = nil
	return e, ev, reg
}

func TestConfirmPresenceIssuesCertificateOnce(t *testing.T) {
	e, _, reg := seedRegistration(t)
	ctx := context.Background()
	teacher := actorOf(2, model.RoleTeacher)

	got, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, true)
	if err != nil {
		t.Fatalf("ConfirmPresence: %v", err)
	}
	if !got.PresenceConfirmed || !got.CertificateIssued || got.CertIssuedAt == nil {
		t.Fatalf("first confirmation did not issue: %+v", got)
	}
	if len(e.notify.certificates) != 1 {
		t.Errorf("published %d certificate notifications, want 1", len(e.notify.certificates))
	}
	want := []string{model.AuditPresenceConfirmed, model.AuditCertGenerated}
	if got := e.store.auditActions(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("audit actions = %v, want %v", got, want)
	}

	// Confirming again is a no-op: no second issuance, no new audit
	// entries, no new notification.
	again, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, true)
	if err != nil {
		t.Fatalf("repeat ConfirmPresence: %v", err)
	}
	if !again.CertificateIssued {
		t.Error("certificate lost on repeat confirmation")
	}
	if len(e.store.audits) != 2 || len(e.notify.certificates) != 1 {
		t.Errorf("repeat confirmation produced side effects: audits=%d notifications=%d",
			len(e.store.audits), len(e.notify.certificates))
	}
}

func TestConfirmPresenceRevoke(t *testing.T) {
	e, _, reg := seedRegistration(t)
	ctx := context.Background()
	teacher := actorOf(2, model.RoleTeacher)

	if _, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, true); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, false)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got.PresenceConfirmed || got.CertificateIssued || got.CertIssuedAt != nil {
		t.Fatalf("revocation left flags set: %+v", got)
	}
	if got.CertEventName == nil {
		t.Error("revocation must keep the frozen snapshot")
	}
	if last := e.store.audits[len(e.store.audits)-1]; last.Action != model.AuditPresenceRevoked {
		t.Errorf("last audit action = %q", last.Action)
	}

	// Re-confirming issues a fresh certificate against the same
	// snapshot.
	again, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, true)
	if err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if !again.CertificateIssued || again.CertIssuedAt == nil {
		t.Error("re-confirmation after revocation must issue again")
	}
}

func TestConfirmPresenceAuthorization(t *testing.T) {
	e, _, reg := seedRegistration(t)
	ctx := context.Background()

	// Participants cannot confirm their own presence directly, and a
	// teacher who does not own the event cannot either.
	e.addUser(9, model.RoleTeacher)
	for _, a := range []struct {
		id   uint64
		role string
	}{{5, model.RoleParticipant}, {9, model.RoleTeacher}} {
		if _, err := e.certifier.ConfirmPresence(ctx, actorOf(a.id, a.role), reg.ID, true); KindOf(err) != KindAuthorization {
			t.Errorf("%s %d: kind = %v, want authorization", a.role, a.id, KindOf(err))
		}
	}
	if _, err := e.certifier.ConfirmPresence(ctx, actorOf(2, model.RoleTeacher), 999, true); KindOf(err) != KindNotFound {
		t.Errorf("missing registration: kind = %v, want not_found", KindOf(err))
	}
}

func TestConfirmByCode(t *testing.T) {
	e, ev, _ := seedRegistration(t)
	ctx := context.Background()
	teacher := actorOf(2, model.RoleTeacher)
	participant := actorOf(5, model.RoleParticipant)

	code, err := e.catalog.IssueConfirmationCode(ctx, teacher, ev.ID, false)
	if err != nil {
		t.Fatalf("IssueConfirmationCode: %v", err)
	}

	// The event has not ended yet.
	if _, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, code); KindOf(err) != KindSchedule {
		t.Fatalf("before end: kind = %v, want schedule", KindOf(err))
	}

	e.store.clock = ev.EndsAt.Add(time.Minute)
	if _, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, "WRONGCOD"); KindOf(err) != KindInvalidCode {
		t.Errorf("wrong code: kind = %v, want invalid_code", KindOf(err))
	}
	if _, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, ""); KindOf(err) != KindInvalidCode {
		t.Errorf("empty code: kind = %v, want invalid_code", KindOf(err))
	}

	// Matching is forgiving about case and surrounding whitespace.
	got, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, "  "+lower(code)+" ")
	if err != nil {
		t.Fatalf("ConfirmByCode: %v", err)
	}
	if !got.PresenceConfirmed || !got.CertificateIssued {
		t.Fatalf("code confirmation did not issue: %+v", got)
	}
	if len(e.notify.certificates) != 1 {
		t.Errorf("published %d certificate notifications, want 1", len(e.notify.certificates))
	}

	audits := len(e.store.audits)
	if _, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, code); err != nil {
		t.Fatalf("repeat ConfirmByCode: %v", err)
	}
	if len(e.store.audits) != audits {
		t.Error("repeat code confirmation must not add audit entries")
	}

	// Someone who never registered gets not-found, not a certificate.
	outsider := e.actor(7, model.RoleParticipant)
	if _, err := e.certifier.ConfirmByCode(ctx, outsider, ev.ID, code); KindOf(err) != KindNotFound {
		t.Errorf("unregistered caller: kind = %v, want not_found", KindOf(err))
	}
}

func TestConfirmByCodeWithoutIssuedCode(t *testing.T) {
	e, ev, _ := seedRegistration(t)
	ctx := context.Background()
	participant := actorOf(5, model.RoleParticipant)
	e.store.clock = ev.EndsAt.Add(time.Minute)

	if _, err := e.certifier.ConfirmByCode(ctx, participant, ev.ID, "AAAA1111"); KindOf(err) != KindInvalidCode {
		t.Errorf("no code issued: kind = %v, want invalid_code", KindOf(err))
	}
}

func TestRenderCertificate(t *testing.T) {
	e, ev, reg := seedRegistration(t)
	ctx := context.Background()
	teacher := actorOf(2, model.RoleTeacher)
	participant := actorOf(5, model.RoleParticipant)

	// Before issuance the certificate is a distinct "not available"
	// condition, not a 404.
	if _, err := e.certifier.RenderCertificate(ctx, participant, reg.ID); KindOf(err) != KindNotAvailable {
		t.Fatalf("unissued: kind = %v, want not_available", KindOf(err))
	}

	if _, err := e.certifier.ConfirmPresence(ctx, teacher, reg.ID, true); err != nil {
		t.Fatalf("ConfirmPresence: %v", err)
	}
	cert, err := e.certifier.RenderCertificate(ctx, participant, reg.ID)
	if err != nil {
		t.Fatalf("RenderCertificate: %v", err)
	}
	if cert.EventName != ev.Title || cert.Venue != ev.Venue {
		t.Errorf("certificate = %+v", cert)
	}
	if cert.ParticipantName != "User Number5" {
		t.Errorf("participant name = %q", cert.ParticipantName)
	}
	if cert.Duration != "2 hours" {
		t.Errorf("duration label = %q", cert.Duration)
	}
	if cert.IssuedAt.IsZero() {
		t.Error("issued-at missing")
	}

	stranger := e.actor(8, model.RoleParticipant)
	if _, err := e.certifier.RenderCertificate(ctx, stranger, reg.ID); KindOf(err) != KindAuthorization {
		t.Errorf("stranger: kind = %v, want authorization", KindOf(err))
	}
}

func TestCertificateSurvivesEventDeletion(t *testing.T) {
	e, ev, reg := seedRegistration(t)
	ctx := context.Background()
	staff := e.actor(1, model.RoleStaff)
	participant := actorOf(5, model.RoleParticipant)

	if err := e.catalog.DeleteEvent(ctx, staff, ev.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	// Deletion revoked any certificate, but staff can still confirm
	// the detached registration and the certificate renders from the
	// frozen snapshot.
	if _, err := e.certifier.ConfirmPresence(ctx, staff, reg.ID, true); err != nil {
		t.Fatalf("ConfirmPresence after deletion: %v", err)
	}
	cert, err := e.certifier.RenderCertificate(ctx, participant, reg.ID)
	if err != nil {
		t.Fatalf("RenderCertificate after deletion: %v", err)
	}
	if cert.EventName != ev.Title || cert.Venue != ev.Venue {
		t.Errorf("certificate lost the frozen event text: %+v", cert)
	}
}
