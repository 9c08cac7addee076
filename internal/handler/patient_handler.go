package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"patientrecords/internal/errors"
	"patientrecords/internal/model"
	"patientrecords/internal/service"
)

// PatientHandler handles patient endpoints. Access control runs in route middleware before these handlers.
type PatientHandler struct {
	patientService service.PatientService
}

// NewPatientHandler creates a new patient handler.
func NewPatientHandler(patientService service.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

// ListPatients godoc
// @Summary List patients
// @Description Returns every patient, most recently created first.
// @Tags patients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Patient
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /patients [get]
func (h *PatientHandler) ListPatients(c echo.Context) error {
	patients, err := h.patientService.List(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

// GetPatient godoc
// @Summary Get patient by id
// @Tags patients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200 {object} model.Patient
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /patients/{id} [get]
func (h *PatientHandler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return toHTTPError(err)
	}
	patient, err := h.patientService.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, patient)
}

// CreatePatient godoc
// @Summary Create patient
// @Description Admin only. Email must not belong to another patient.
// @Tags patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreatePatientRequest true "Patient data"
// @Success 201 {object} model.Patient
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /patients [post]
func (h *PatientHandler) CreatePatient(c echo.Context) error {
	var req model.CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return toHTTPError(errors.ErrInvalidRequest)
	}

	patient, err := h.patientService.Create(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, patient)
}

// UpdatePatient godoc
// @Summary Update patient
// @Description Admin only. Only the supplied fields change.
// @Tags patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Param request body model.UpdatePatientRequest true "Fields to change"
// @Success 200 {object} model.Patient
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /patients/{id} [patch]
func (h *PatientHandler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return toHTTPError(err)
	}
	var req model.UpdatePatientRequest
	if err := c.Bind(&req); err != nil {
		return toHTTPError(errors.ErrInvalidRequest)
	}

	patient, err := h.patientService.Update(c.Request().Context(), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, patient)
}

// DeletePatient godoc
// @Summary Delete patient
// @Description Admin only. Permanently removes the patient.
// @Tags patients
// @Security BearerAuth
// @Param id path int true "Patient ID"
// @Success 200
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /patients/{id} [delete]
func (h *PatientHandler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return toHTTPError(err)
	}
	if err := h.patientService.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusOK)
}
