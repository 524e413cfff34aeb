// Package handler defines the HTTP handlers of the portal.  Handlers
// stay thin: they bind and validate transport-level input, call one
// service operation and translate the classified service error into
// an HTTP status.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/policy"
	"github.com/sgea/event-attendance/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it
// to uint64.  The JWT middleware stores claims untyped, so numeric
// sub claims may arrive as float64 or string.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the policy actor for the authenticated request.
func actorFrom(c echo.Context) (policy.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return policy.Actor{}, err
	}
	role, _ := c.Get("role").(string)
	if role == "" {
		return policy.Actor{}, errors.New("missing role in context")
	}
	return policy.Actor{ID: id, Role: role}, nil
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:    http.StatusBadRequest,
	service.KindSchedule:      http.StatusBadRequest,
	service.KindInvalidCode:   http.StatusBadRequest,
	service.KindAuthorization: http.StatusForbidden,
	service.KindNotFound:      http.StatusNotFound,
	service.KindConflict:      http.StatusConflict,
	service.KindCapacity:      http.StatusConflict,
	service.KindNotAvailable:  http.StatusConflict,
}

// respondError maps a service error onto an HTTP response.  The body
// always carries the machine-checkable code next to the message;
// validation errors add the offending field.  Unclassified errors
// become an opaque 500 so internals never leak to clients.
func respondError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal server error", "code": service.KindInternal,
		})
	}
	body := echo.Map{"error": err.Error(), "code": kind}
	var se *service.Error
	if errors.As(err, &se) && se.Field != "" {
		body["field"] = se.Field
	}
	return c.JSON(status, body)
}
