package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/queue"
	"github.com/sgea/event-attendance/internal/repository"
)

// memStore is an in-memory implementation of every store interface,
// mirroring the repository semantics closely enough to exercise the
// services without a database.
type memStore struct {
	events map[uint64]*model.Event
	regs   map[uint64]*model.Registration
	users  map[uint64]*model.User
	audits []model.AuditEntry

	nextEventID uint64
	nextRegID   uint64
	nextAuditID uint64

	auditErr error
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uint64]*model.Event),
		regs:   make(map[uint64]*model.Registration),
		users:  make(map[uint64]*model.User),
		clock:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Create(ctx context.Context, ev *model.Event) error {
	m.nextEventID++
	ev.ID = m.nextEventID
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) Update(ctx context.Context, ev *model.Event) error {
	if _, ok := m.events[ev.ID]; !ok {
		return repository.ErrEventNotFound
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) List(ctx context.Context) ([]model.Event, error) {
	out := make([]model.Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) CodeExists(ctx context.Context, code string) (bool, error) {
	for _, ev := range m.events {
		if ev.ConfirmationCode != nil && *ev.ConfirmationCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SetConfirmationCode(ctx context.Context, id uint64, code string) error {
	for _, ev := range m.events {
		if ev.ConfirmationCode != nil && *ev.ConfirmationCode == code {
			return repository.ErrDuplicate
		}
	}
	ev, ok := m.events[id]
	if !ok || ev.ConfirmationCode != nil {
		return repository.ErrEventNotFound
	}
	ev.ConfirmationCode = &code
	return nil
}

func (m *memStore) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, ok := m.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	if reg.EventID == nil {
		return repository.ErrEventNotFound
	}
	ev, ok := m.events[*reg.EventID]
	if !ok {
		return repository.ErrEventNotFound
	}
	var count uint32
	for _, r := range m.regs {
		if r.EventID != nil && *r.EventID == *reg.EventID {
			if r.ParticipantID == reg.ParticipantID {
				return repository.ErrDuplicate
			}
			count++
		}
	}
	if count >= ev.Capacity {
		return repository.ErrCapacityFull
	}
	m.nextRegID++
	reg.ID = m.nextRegID
	reg.RegisteredAt = m.clock
	cp := *reg
	m.regs[reg.ID] = &cp
	return nil
}

func (m *memStore) GetRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
	reg, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (m *memStore) ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	var out []model.Registration
	for _, r := range m.regs {
		if r.EventID != nil && *r.EventID == eventID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListByParticipant(ctx context.Context, participantID uint64) ([]model.Registration, error) {
	var out []model.Registration
	for _, r := range m.regs {
		if r.ParticipantID == participantID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) CountByEvent(ctx context.Context, eventID uint64) (uint32, error) {
	var n uint32
	for _, r := range m.regs {
		if r.EventID != nil && *r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Delete(ctx context.Context, id uint64) error {
	if _, ok := m.regs[id]; !ok {
		return repository.ErrRegistrationNotFound
	}
	delete(m.regs, id)
	return nil
}

func (m *memStore) ConfirmAndIssue(ctx context.Context, id uint64, issuedAt time.Time) (bool, error) {
	reg, ok := m.regs[id]
	if !ok {
		return false, repository.ErrRegistrationNotFound
	}
	if reg.CertificateIssued {
		reg.PresenceConfirmed = true
		return false, nil
	}
	reg.PresenceConfirmed = true
	reg.CertificateIssued = true
	at := issuedAt
	reg.CertIssuedAt = &at
	return true, nil
}

func (m *memStore) Revoke(ctx context.Context, id uint64) error {
	reg, ok := m.regs[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	reg.PresenceConfirmed = false
	reg.CertificateIssued = false
	reg.CertIssuedAt = nil
	return nil
}

func (m *memStore) PreserveEventSnapshotTx(ctx context.Context, tx *sql.Tx, ev *model.Event) (int64, error) {
	var n int64
	for _, r := range m.regs {
		if r.EventID == nil || *r.EventID != ev.ID {
			continue
		}
		if r.CertEventName == nil {
			title := ev.Title
			r.CertEventName = &title
		}
		if r.CertStartsAt == nil {
			at := ev.StartsAt
			r.CertStartsAt = &at
		}
		if r.CertVenue == nil {
			venue := ev.Venue
			r.CertVenue = &venue
		}
		if r.CertDurationMinutes == nil {
			d := ev.DurationMinutes
			r.CertDurationMinutes = &d
		}
		r.CertificateIssued = false
		r.CertIssuedAt = nil
		n++
	}
	return n, nil
}

func (m *memStore) DetachEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	for _, r := range m.regs {
		if r.EventID != nil && *r.EventID == eventID {
			r.EventID = nil
		}
	}
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Insert(ctx context.Context, e *model.AuditEntry) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.nextAuditID++
	e.ID = m.nextAuditID
	e.CreatedAt = m.clock
	m.audits = append(m.audits, *e)
	return nil
}

func (m *memStore) AuditList(ctx context.Context, f repository.AuditFilter) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	for i := len(m.audits) - 1; i >= 0; i-- {
		e := m.audits[i]
		if f.ActionContains != "" && !strings.Contains(e.Action, f.ActionContains) {
			continue
		}
		if f.ActorID != 0 && (e.ActorID == nil || *e.ActorID != f.ActorID) {
			continue
		}
		if !f.IncludeSelf && strings.Contains(e.Action, model.AuditTrailViewed) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) ListAll(ctx context.Context) ([]model.AuditEntry, error) {
	return append([]model.AuditEntry(nil), m.audits...), nil
}

func (m *memStore) PurgeExcept(ctx context.Context, markerAction string, keepID uint64) error {
	var kept []model.AuditEntry
	for _, e := range m.audits {
		if e.ID == keepID || e.Action == markerAction {
			kept = append(kept, e)
		}
	}
	m.audits = kept
	return nil
}

func (m *memStore) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// auditActions returns the recorded action labels in order, for
// asserting which entries an operation produced.
func (m *memStore) auditActions() []string {
	out := make([]string, 0, len(m.audits))
	for _, e := range m.audits {
		out = append(out, e.Action)
	}
	return out
}

// The service interfaces use method names that collide on memStore
// (Create, GetByID, List).  Thin views disambiguate.
type memEvents struct{ *memStore }

type memRegs struct{ *memStore }

type memUsers struct{ *memStore }

type memAudits struct{ *memStore }

func (v memRegs) Create(ctx context.Context, reg *model.Registration) error {
	return v.CreateRegistration(ctx, reg)
}

func (v memRegs) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	return v.GetRegistration(ctx, id)
}

func (v memUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return v.GetUser(ctx, id)
}

func (v memAudits) List(ctx context.Context, f repository.AuditFilter) ([]model.AuditEntry, error) {
	return v.AuditList(ctx, f)
}

// fakeNotifier records published notifications.
type fakeNotifier struct {
	registrations []queue.RegistrationCreated
	codes         []queue.ConfirmationCodeIssued
	certificates  []queue.CertificateIssued
	err           error
}

func (n *fakeNotifier) RegistrationCreated(ctx context.Context, msg queue.RegistrationCreated) error {
	if n.err != nil {
		return n.err
	}
	n.registrations = append(n.registrations, msg)
	return nil
}

func (n *fakeNotifier) ConfirmationCodeIssued(ctx context.Context, msg queue.ConfirmationCodeIssued) error {
	if n.err != nil {
		return n.err
	}
	n.codes = append(n.codes, msg)
	return nil
}

func (n *fakeNotifier) CertificateIssued(ctx context.Context, msg queue.CertificateIssued) error {
	if n.err != nil {
		return n.err
	}
	n.certificates = append(n.certificates, msg)
	return nil
}

var errAuditDown = errors.New("audit store unavailable")
