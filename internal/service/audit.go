package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/policy"
	"github.com/sgea/event-attendance/internal/repository"
)

// Audit is the append-only trail of significant actions.  Record is
// best-effort by contract: it returns an error the caller may
// ignore, and never blocks a primary operation.  Purge snapshots
// the trail to an immutable backup artifact before deleting.
type Audit struct {
	store     AuditStore
	backupDir string
	now       func() time.Time
}

// NewAudit constructs the audit trail service.  backupDir is where
// purge backup artifacts are written.
func NewAudit(store AuditStore, backupDir string) *Audit {
	if store == nil {
		panic("nil store passed to NewAudit")
	}
	return &Audit{store: store, backupDir: backupDir, now: time.Now}
}

// Record appends one entry.  Failures are logged for operators and
// returned, but callers treat the result as advisory: audit logging
// must never block the operation being audited.  The entry either
// writes completely or not at all.
func (a *Audit) Record(ctx context.Context, actorID uint64, action, detail string) error {
	e := &model.AuditEntry{ActorID: &actorID, Action: action, Detail: detail}
	if err := a.store.Insert(ctx, e); err != nil {
		log.Printf("audit: dropped entry action=%q: %v", action, err)
		return err
	}
	return nil
}

// Query returns entries matching the filter, newest first.  The
// default view hides self-referential "Viewed audit log" entries;
// when the caller asks for them explicitly, the access itself is
// recorded.
func (a *Audit) Query(ctx context.Context, actor policy.Actor, f repository.AuditFilter) ([]model.AuditEntry, error) {
	if !policy.Allows(actor, policy.AuditView, policy.Resource{}) {
		return nil, authorization("you are not allowed to view the audit trail")
	}
	entries, err := a.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.IncludeSelf {
		_ = a.Record(ctx, actor.ID, model.AuditTrailViewed,
			fmt.Sprintf("action=%q actor_id=%d", f.ActionContains, f.ActorID))
	}
	return entries, nil
}

// Purge writes every current entry to a timestamped backup artifact,
// inserts one permanent purge-marker entry referencing it, then
// deletes everything else.  The marker and all earlier markers
// survive; the purge history is never erasable through this path.
func (a *Audit) Purge(ctx context.Context, actor policy.Actor) (string, error) {
	if !policy.Allows(actor, policy.AuditPurge, policy.Resource{}) {
		return "", authorization("you are not allowed to purge the audit trail")
	}
	entries, err := a.store.ListAll(ctx)
	if err != nil {
		return "", err
	}
	artifact := fmt.Sprintf("audit_backup_%s.txt", a.now().UTC().Format("20060102T150405Z"))
	if err := a.writeBackup(artifact, entries); err != nil {
		return "", err
	}
	marker := &model.AuditEntry{ActorID: &actor.ID, Action: model.AuditTrailPurged, Detail: artifact}
	if err := a.store.Insert(ctx, marker); err != nil {
		// Without a marker the purge would erase its own trace; stop here.
		return "", err
	}
	if err := a.store.PurgeExcept(ctx, model.AuditTrailPurged, marker.ID); err != nil {
		return "", err
	}
	return artifact, nil
}

func (a *Audit) writeBackup(name string, entries []model.AuditEntry) error {
	if err := os.MkdirAll(a.backupDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(a.backupDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, e := range entries {
		actor := "-"
		if e.ActorID != nil {
			actor = fmt.Sprintf("%d", *e.ActorID)
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339), actor, e.Action, e.Detail)
		if _, err := f.WriteString(line); err != nil {
			return err
		}
	}
	return f.Sync()
}
