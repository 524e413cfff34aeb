package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/service"
)

// EventHandler exposes the event catalog over HTTP.
type EventHandler struct {
	Catalog *service.Catalog
}

func NewEventHandler(catalog *service.Catalog) *EventHandler {
	if catalog == nil {
		panic("nil catalog passed to NewEventHandler")
	}
	return &EventHandler{Catalog: catalog}
}

type eventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    uint32    `json:"capacity"`
	BannerURL   *string   `json:"banner_url"`
	OwnerID     uint64    `json:"owner_id"`
}

type eventResp struct {
	ID              uint64    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Venue           string    `json:"venue"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Capacity        uint32    `json:"capacity"`
	DurationMinutes uint32    `json:"duration_minutes"`
	Duration        string    `json:"duration"`
	BannerURL       *string   `json:"banner_url,omitempty"`
	OwnerID         uint64    `json:"owner_id"`
	Registered      uint32    `json:"registered"`
	CodeIssued      bool      `json:"code_issued"`
}

func toEventResp(ev *model.Event, registered uint32) eventResp {
	return eventResp{
		ID:              ev.ID,
		Title:           ev.Title,
		Description:     ev.Description,
		Venue:           ev.Venue,
		StartsAt:        ev.StartsAt,
		EndsAt:          ev.EndsAt,
		Capacity:        ev.Capacity,
		DurationMinutes: ev.DurationMinutes,
		Duration:        model.FormatDuration(ev.DurationMinutes),
		BannerURL:       ev.BannerURL,
		OwnerID:         ev.OwnerID,
		Registered:      registered,
		CodeIssued:      ev.ConfirmationCode != nil,
	}
}

func (r eventReq) toInput() service.EventInput {
	return service.EventInput{
		Title:       r.Title,
		Description: r.Description,
		Venue:       r.Venue,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Capacity:    r.Capacity,
		BannerURL:   r.BannerURL,
		OwnerID:     r.OwnerID,
	}
}

// List returns all events with registration counts.  Public.
func (h *EventHandler) List(c echo.Context) error {
	views, err := h.Catalog.ListEvents(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]eventResp, 0, len(views))
	for i := range views {
		out = append(out, toEventResp(&views[i].Event, views[i].Registered))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns one event.  Public.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	view, err := h.Catalog.GetEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(&view.Event, view.Registered))
}

// Create creates an event.
func (h *EventHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Catalog.CreateEvent(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResp(ev, 0))
}

// Update edits an event.
func (h *EventHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Catalog.EditEvent(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(ev, 0))
}

// Delete removes an event while keeping its registrations and their
// certificate snapshots.
func (h *EventHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if err := h.Catalog.DeleteEvent(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type issueCodeReq struct {
	Send bool `json:"send"`
}

// IssueCode assigns the event's confirmation code (idempotent) and
// optionally mails it to every registered participant.
func (h *EventHandler) IssueCode(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req issueCodeReq
	_ = c.Bind(&req)
	code, err := h.Catalog.IssueConfirmationCode(c.Request().Context(), actor, id, req.Send)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"code": code, "sent": req.Send})
}
