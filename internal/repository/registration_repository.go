package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sgea/event-attendance/internal/model"
)

// RegistrationRepo provides persistence for registrations and their
// frozen certificate snapshots.  The capacity and duplicate checks
// run inside a single transaction in Create so two concurrent
// registrations cannot both squeeze past a nearly full event.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the
// given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, event_id, participant_id, registered_at, email, first_name,
	last_name, phone, presence_confirmed, certificate_issued, cert_event_name, cert_starts_at,
	cert_venue, cert_duration_minutes, cert_issued_at`

func scanRegistration(row interface{ Scan(...any) error }) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.RegisteredAt, &reg.Email,
		&reg.FirstName, &reg.LastName, &reg.Phone, &reg.PresenceConfirmed, &reg.CertificateIssued,
		&reg.CertEventName, &reg.CertStartsAt, &reg.CertVenue, &reg.CertDurationMinutes,
		&reg.CertIssuedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts a registration after re-checking capacity and
// duplicates inside one transaction.  The event row is locked with
// FOR UPDATE so concurrent inserts for the same event serialize on
// the capacity check; the unique (event_id, participant_id) index
// backs the duplicate check against races.  Returns
// ErrEventNotFound, ErrCapacityFull or ErrDuplicate.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	if reg.EventID == nil {
		return ErrEventNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var capacity uint32
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = ? FOR UPDATE`, *reg.EventID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}

	var count uint32
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ?`, *reg.EventID).Scan(&count)
	if err != nil {
		return err
	}
	if count >= capacity {
		return ErrCapacityFull
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO registrations
		(event_id, participant_id, email, first_name, last_name, phone,
		 cert_event_name, cert_starts_at, cert_venue, cert_duration_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.EventID, reg.ParticipantID, reg.Email, reg.FirstName, reg.LastName, reg.Phone,
		reg.CertEventName, reg.CertStartsAt, reg.CertVenue, reg.CertDurationMinutes)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	reg.ID = uint64(id)
	reg.RegisteredAt = time.Now().UTC()
	return nil
}

// GetByID fetches one registration or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

// ListByEvent returns all registrations for an event ordered by
// registration time.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	return r.list(ctx, `event_id = ? ORDER BY registered_at`, eventID)
}

// ListByParticipant returns a participant's registrations, newest
// first, including ones whose event has been deleted.
func (r *RegistrationRepo) ListByParticipant(ctx context.Context, participantID uint64) ([]model.Registration, error) {
	return r.list(ctx, `participant_id = ? ORDER BY registered_at DESC`, participantID)
}

func (r *RegistrationRepo) list(ctx context.Context, where string, arg any) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// CountByEvent returns the number of registrations for an event.
func (r *RegistrationRepo) CountByEvent(ctx context.Context, eventID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}

// Delete removes a registration outright; cancellation is a hard
// delete, there is no soft-delete state.
func (r *RegistrationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// ConfirmAndIssue performs the atomic confirm-and-issue transition:
// presence flag, certificate flag and issued-at timestamp are set in
// one conditional UPDATE gated on certificate_issued = 0, so the
// certificate is issued exactly once no matter how many concurrent
// confirmations race.  Returns true when this call issued the
// certificate and false when it was already issued.
func (r *RegistrationRepo) ConfirmAndIssue(ctx context.Context, id uint64, issuedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE registrations
		SET presence_confirmed = 1, certificate_issued = 1, cert_issued_at = ?
		WHERE id = ? AND certificate_issued = 0`, issuedAt.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	// Nothing updated: either the row is gone or the certificate is
	// already issued.  Reassert the presence flag for the latter.
	if _, err = r.db.ExecContext(ctx,
		`UPDATE registrations SET presence_confirmed = 1 WHERE id = ? AND certificate_issued = 1`, id); err != nil {
		return false, err
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM registrations WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return false, ErrRegistrationNotFound
	} else if err != nil {
		return false, err
	}
	return false, nil
}

// Revoke clears both flags and the issued-at timestamp.  The frozen
// snapshot columns are kept; rendering is disabled purely by the
// issued flag.
func (r *RegistrationRepo) Revoke(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE registrations
		SET presence_confirmed = 0, certificate_issued = 0, cert_issued_at = NULL
		WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if e := r.db.QueryRowContext(ctx, `SELECT 1 FROM registrations WHERE id = ?`, id).Scan(&exists); e == sql.ErrNoRows {
			return ErrRegistrationNotFound
		}
	}
	return nil
}

// PreserveEventSnapshotTx backfills any missing snapshot fields from
// the live event and revokes issued certificates, for every
// registration referencing the event.  It runs on the caller's
// transaction: event deletion must not commit unless this pass
// completed.  Returns the number of affected registrations.
func (r *RegistrationRepo) PreserveEventSnapshotTx(ctx context.Context, tx *sql.Tx, ev *model.Event) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE registrations SET
		cert_event_name       = COALESCE(cert_event_name, ?),
		cert_starts_at        = COALESCE(cert_starts_at, ?),
		cert_venue            = COALESCE(cert_venue, ?),
		cert_duration_minutes = COALESCE(cert_duration_minutes, ?),
		certificate_issued    = 0,
		cert_issued_at        = NULL
		WHERE event_id = ?`,
		ev.Title, ev.StartsAt.UTC(), ev.Venue, ev.DurationMinutes, ev.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DetachEventTx nulls the event reference on every registration for
// the event, on the caller's transaction.  Runs after the snapshot
// pass and before the event row is deleted.
func (r *RegistrationRepo) DetachEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE registrations SET event_id = NULL WHERE event_id = ?`, eventID)
	return err
}
