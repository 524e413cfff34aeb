package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sgea/event-attendance/internal/model"
)

// AuditRepo persists the append-only audit trail.  Entries are only
// ever inserted; the single deletion path is PurgeExcept, used by
// the administrative purge after the backup artifact is written.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// AuditFilter narrows an audit query.  Zero values mean "no
// filter".  IncludeSelf controls whether self-referential
// "Viewed audit log" entries appear; the default view hides them.
type AuditFilter struct {
	ActionContains string
	ActorID        uint64
	From           time.Time
	To             time.Time
	IncludeSelf    bool
	Limit          int
	Offset         int
}

// Insert appends one entry.  CreatedAt is assigned by the database.
func (r *AuditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (actor_id, action, detail) VALUES (?, ?, ?)`,
		e.ActorID, e.Action, e.Detail)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// List returns entries newest first, applying the filter.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	if f.ActionContains != "" {
		conds = append(conds, "action LIKE ?")
		args = append(args, "%"+f.ActionContains+"%")
	}
	if f.ActorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	if !f.IncludeSelf {
		conds = append(conds, "action NOT LIKE ?")
		args = append(args, "%"+model.AuditTrailViewed+"%")
	}
	q := `SELECT id, actor_id, action, detail, created_at FROM audit_entries`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListAll returns every entry oldest first, for the purge backup.
func (r *AuditRepo) ListAll(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, detail, created_at FROM audit_entries ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeExcept deletes every entry except the freshly written purge
// marker (keepID) and any earlier entries carrying the marker
// action, so the purge history itself is never erasable.
func (r *AuditRepo) PurgeExcept(ctx context.Context, markerAction string, keepID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE id <> ? AND action <> ?`, keepID, markerAction)
	return err
}
