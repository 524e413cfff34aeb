package model

import (
	"fmt"
	"time"
)

// Event represents a scheduled activity that participants can
// register for.  Every event belongs to exactly one owner (a
// teacher or organizer account) and carries a capacity that caps
// the number of registrations.  The confirmation code is a
// per-event secret issued at most once; participants use it for
// self-service attendance confirmation after the event ends.
//
// Fields:
//  ID               – primary key identifier.
//  Title            – event name shown on certificates.
//  Description      – free-text description.
//  Venue            – where the event takes place.
//  StartsAt         – when the event begins.
//  EndsAt           – when the event ends (must be after StartsAt).
//  Capacity         – maximum number of registrations.
//  DurationMinutes  – derived from StartsAt/EndsAt at create/edit time.
//  BannerURL        – optional reference to a banner image.
//  OwnerID          – user who owns the event.
//  ConfirmationCode – optional 8-char alphanumeric code, unique
//                     across all events, assigned at most once.
type Event struct {
	ID               uint64    // events.id
	Title            string    // events.title
	Description      string    // events.description
	Venue            string    // events.venue
	StartsAt         time.Time // events.starts_at
	EndsAt           time.Time // events.ends_at
	Capacity         uint32    // events.capacity
	DurationMinutes  uint32    // events.duration_minutes
	BannerURL        *string   // events.banner_url (nullable)
	OwnerID          uint64    // events.owner_id
	ConfirmationCode *string   // events.confirmation_code (nullable, unique)
	CreatedAt        time.Time // events.created_at
	UpdatedAt        time.Time // events.updated_at
}

// FormatDuration renders a minute count as a readable label, e.g.
// 90 -> "1 hour and 30 minutes", 45 -> "45 minutes". Used on
// certificates and event listings.
func FormatDuration(minutes uint32) string {
	m := int(minutes)
	if m < 60 {
		return fmt.Sprintf("%d %s", m, plural(m, "minute"))
	}
	h := m / 60
	rem := m % 60
	if rem == 0 {
		return fmt.Sprintf("%d %s", h, plural(h, "hour"))
	}
	return fmt.Sprintf("%d %s and %d %s", h, plural(h, "hour"), rem, plural(rem, "minute"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
