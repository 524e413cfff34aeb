package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/queue"
	"github.com/sgea/event-attendance/internal/repository"
)

// EventStore is the persistence surface the catalog needs.
// Implemented by repository.EventRepo.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	Update(ctx context.Context, ev *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	SetConfirmationCode(ctx context.Context, id uint64, code string) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

// RegistrationStore is the persistence surface the ledger and the
// certifier need.  Implemented by repository.RegistrationRepo.
// Create must enforce the capacity and duplicate invariants
// atomically; ConfirmAndIssue must apply the confirm-and-issue
// transition as one write gated on certificate_issued being unset.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id uint64) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error)
	ListByParticipant(ctx context.Context, participantID uint64) ([]model.Registration, error)
	CountByEvent(ctx context.Context, eventID uint64) (uint32, error)
	Delete(ctx context.Context, id uint64) error
	ConfirmAndIssue(ctx context.Context, id uint64, issuedAt time.Time) (bool, error)
	Revoke(ctx context.Context, id uint64) error
	PreserveEventSnapshotTx(ctx context.Context, tx *sql.Tx, ev *model.Event) (int64, error)
	DetachEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error
}

// UserStore reads participant profiles from the identity
// collaborator.  Implemented by repository.UserRepo.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// AuditStore persists the audit trail.  Implemented by
// repository.AuditRepo.
type AuditStore interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, f repository.AuditFilter) ([]model.AuditEntry, error)
	ListAll(ctx context.Context) ([]model.AuditEntry, error)
	PurgeExcept(ctx context.Context, markerAction string, keepID uint64) error
}

// TxRunner runs a function inside a database transaction.
// Implemented by repository.TxRunner.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Notifier publishes outbound notification events.  Calls are
// fire-and-forget: services log failures and carry on.
type Notifier interface {
	RegistrationCreated(ctx context.Context, n queue.RegistrationCreated) error
	ConfirmationCodeIssued(ctx context.Context, n queue.ConfirmationCodeIssued) error
	CertificateIssued(ctx context.Context, n queue.CertificateIssued) error
}
