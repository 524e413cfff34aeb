package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/service"
)

// AttendanceHandler exposes presence confirmation and certificates.
type AttendanceHandler struct {
	Certifier *service.Certifier
}

func NewAttendanceHandler(certifier *service.Certifier) *AttendanceHandler {
	if certifier == nil {
		panic("nil certifier passed to NewAttendanceHandler")
	}
	return &AttendanceHandler{Certifier: certifier}
}

type presenceReq struct {
	Present bool `json:"present"`
}

// SetPresence sets or clears the attendance flag on a registration,
// for the event owner or an elevated role.  Setting it issues the
// certificate; clearing it revokes it.
func (h *AttendanceHandler) SetPresence(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req presenceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	reg, err := h.Certifier.ConfirmPresence(c.Request().Context(), actor, regID, req.Present)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResp(reg))
}

type confirmCodeReq struct {
	Code string `json:"code"`
}

// ConfirmByCode is the participant self-service path: submit the
// event's confirmation code after it ends to confirm attendance and
// receive the certificate.
func (h *AttendanceHandler) ConfirmByCode(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req confirmCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	reg, err := h.Certifier.ConfirmByCode(c.Request().Context(), actor, eventID, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResp(reg))
}

// Certificate renders the certificate of a registration from its
// frozen snapshot.
func (h *AttendanceHandler) Certificate(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	cert, err := h.Certifier.RenderCertificate(c.Request().Context(), actor, regID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cert)
}
