package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sgea/event-attendance/internal/model"
)

// EventRepo provides CRUD operations for events.  All timestamp
// columns are DATETIME stored in UTC; the driver's parseTime=true
// option maps them to time.Time.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, venue, starts_at, ends_at, capacity,
	duration_minutes, banner_url, owner_id, confirmation_code, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Venue, &ev.StartsAt, &ev.EndsAt,
		&ev.Capacity, &ev.DurationMinutes, &ev.BannerURL, &ev.OwnerID, &ev.ConfirmationCode,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event and populates the generated ID.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events
		(title, description, venue, starts_at, ends_at, capacity, duration_minutes, banner_url, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, ev.Title, ev.Description, ev.Venue,
		ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.Capacity, ev.DurationMinutes, ev.BannerURL, ev.OwnerID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// GetByID fetches one event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// Update rewrites the mutable columns of an event.  The banner is
// written as-is; callers keep the previous value when no new banner
// was supplied.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) error {
	const q = `UPDATE events SET title=?, description=?, venue=?, starts_at=?, ends_at=?,
		capacity=?, duration_minutes=?, banner_url=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, q, ev.Title, ev.Description, ev.Venue,
		ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.Capacity, ev.DurationMinutes, ev.BannerURL, ev.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Could also mean an update with identical values; verify existence.
		var exists int
		if e := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id=?`, ev.ID).Scan(&exists); e == sql.ErrNoRows {
			return ErrEventNotFound
		}
	}
	return nil
}

// List returns all events ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

// CodeExists reports whether any event already carries the given
// confirmation code.  Used by the bounded-retry code generator.
func (r *EventRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE confirmation_code = ? LIMIT 1`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetConfirmationCode assigns a code to an event that does not have
// one yet.  A unique index on confirmation_code backs the collision
// retry loop; violations surface as ErrDuplicate.
func (r *EventRepo) SetConfirmationCode(ctx context.Context, id uint64, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET confirmation_code = ? WHERE id = ? AND confirmation_code IS NULL`,
		code, id)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteTx removes the event row inside an existing transaction.
// Callers must have run the registration snapshot-preservation pass
// on the same transaction first.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
