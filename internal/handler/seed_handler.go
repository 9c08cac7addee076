package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"patientrecords/internal/service"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seedService service.SeedService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seedService service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

// SeedResponse represents the seed response.
type SeedResponse struct {
	Message string `json:"message"`
	service.SeedResult
}

// Seed godoc
// @Summary Seed demo users and patients
// @Description Admin only. Records that already exist are skipped.
// @Tags seed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SeedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	result, err := h.seedService.Seed(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, SeedResponse{
		Message:    "seed completed",
		SeedResult: result,
	})
}
