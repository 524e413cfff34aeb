package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/model"
	"github.com/sgea/event-attendance/internal/service"
)

// RegistrationHandler exposes the registration ledger over HTTP.
type RegistrationHandler struct {
	Ledger *service.Ledger
}

func NewRegistrationHandler(ledger *service.Ledger) *RegistrationHandler {
	if ledger == nil {
		panic("nil ledger passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Ledger: ledger}
}

type registrationResp struct {
	ID                uint64    `json:"id"`
	EventID           *uint64   `json:"event_id"`
	EventName         *string   `json:"event_name,omitempty"`
	ParticipantID     uint64    `json:"participant_id"`
	RegisteredAt      time.Time `json:"registered_at"`
	PresenceConfirmed bool      `json:"presence_confirmed"`
	CertificateIssued bool      `json:"certificate_issued"`
}

func toRegistrationResp(r *model.Registration) registrationResp {
	return registrationResp{
		ID:                r.ID,
		EventID:           r.EventID,
		EventName:         r.CertEventName,
		ParticipantID:     r.ParticipantID,
		RegisteredAt:      r.RegisteredAt,
		PresenceConfirmed: r.PresenceConfirmed,
		CertificateIssued: r.CertificateIssued,
	}
}

type registerReqBody struct {
	// ParticipantID is optional: zero means the caller registers
	// themselves; elevated roles may register someone else.
	ParticipantID uint64 `json:"participant_id"`
}

// Register enrolls a participant in the event from the path.
func (h *RegistrationHandler) Register(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req registerReqBody
	_ = c.Bind(&req)

	reg, err := h.Ledger.Register(c.Request().Context(), actor, eventID, req.ParticipantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toRegistrationResp(reg))
}

// Cancel drops a registration.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	if err := h.Ledger.Cancel(c.Request().Context(), actor, regID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine lists the caller's registrations.  Elevated roles may view
// another participant's with ?participant_id=N.
func (h *RegistrationHandler) Mine(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var target uint64
	if q := c.QueryParam("participant_id"); q != "" {
		target, err = strconv.ParseUint(q, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant_id"})
		}
	}
	regs, err := h.Ledger.MyRegistrations(c.Request().Context(), actor, target)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]registrationResp, 0, len(regs))
	for i := range regs {
		out = append(out, toRegistrationResp(&regs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}

// Attendees lists who is registered for an event.
func (h *RegistrationHandler) Attendees(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	list, err := h.Ledger.Attendees(c.Request().Context(), actor, eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"attendees": list})
}
