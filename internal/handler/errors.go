package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"patientrecords/internal/errors"
)

// toHTTPError renders a service error as the standardized error body.
func toHTTPError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError(name, "must be a positive integer")
	}
	return uint(id), nil
}
