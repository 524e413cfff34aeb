package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/repository"
	"github.com/sgea/event-attendance/internal/service"
)

// AuditHandler exposes the audit trail to elevated roles.
type AuditHandler struct {
	Audit *service.Audit
}

func NewAuditHandler(audit *service.Audit) *AuditHandler {
	if audit == nil {
		panic("nil audit passed to NewAuditHandler")
	}
	return &AuditHandler{Audit: audit}
}

type auditEntryResp struct {
	ID        uint64    `json:"id"`
	ActorID   *uint64   `json:"actor_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns audit entries newest first.  Query parameters:
// action (substring match), actor_id, from/to (RFC 3339),
// include_self, limit, offset.
func (h *AuditHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	f := repository.AuditFilter{ActionContains: c.QueryParam("action")}
	if q := c.QueryParam("actor_id"); q != "" {
		if f.ActorID, err = strconv.ParseUint(q, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid actor_id"})
		}
	}
	if q := c.QueryParam("from"); q != "" {
		if f.From, err = time.Parse(time.RFC3339, q); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
	}
	if q := c.QueryParam("to"); q != "" {
		if f.To, err = time.Parse(time.RFC3339, q); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
	}
	f.IncludeSelf = c.QueryParam("include_self") == "true"
	if q := c.QueryParam("limit"); q != "" {
		if f.Limit, err = strconv.Atoi(q); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
	}
	if q := c.QueryParam("offset"); q != "" {
		if f.Offset, err = strconv.Atoi(q); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
	}

	entries, err := h.Audit.Query(c.Request().Context(), actor, f)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]auditEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

// Purge backs the trail up to a file and deletes everything except
// the purge markers.
func (h *AuditHandler) Purge(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	artifact, err := h.Audit.Purge(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"backup": artifact})
}
