package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
)

// patientField pairs a wire field name with the validator tags it must satisfy.
type patientField struct {
	name string
	tag  string
}

var patientFields = []patientField{
	{name: "firstName", tag: "required,max=255"},
	{name: "lastName", tag: "required,max=255"},
	{name: "email", tag: "required,max=255,email"},
	{name: "phoneNumber", tag: "required,max=64"},
	{name: "dob", tag: "required,datetime=" + model.DateLayout},
}

// PatientValidator checks patient input field by field and reports every failure at once.
type PatientValidator struct {
	v *validator.Validate
}

// NewPatientValidator creates a validator for patient payloads.
func NewPatientValidator() *PatientValidator {
	return &PatientValidator{v: validator.New()}
}

// ValidateCreate normalizes req in place and checks all five fields.
func (pv *PatientValidator) ValidateCreate(req *model.CreatePatientRequest) error {
	normalizeCreate(req)
	values := map[string]string{
		"firstName":   req.FirstName,
		"lastName":    req.LastName,
		"email":       req.Email,
		"phoneNumber": req.PhoneNumber,
		"dob":         req.Dob,
	}
	verr := &apperrors.ValidationError{}
	for _, f := range patientFields {
		pv.check(verr, f, values[f.name])
	}
	return verr.OrNil()
}

// ValidatePatch normalizes the supplied fields of req in place and checks only those.
// A supplied field must satisfy the same rules as on create.
func (pv *PatientValidator) ValidatePatch(req *model.UpdatePatientRequest) error {
	normalizePatch(req)
	values := map[string]*string{
		"firstName":   req.FirstName,
		"lastName":    req.LastName,
		"email":       req.Email,
		"phoneNumber": req.PhoneNumber,
		"dob":         req.Dob,
	}
	verr := &apperrors.ValidationError{}
	for _, f := range patientFields {
		if v := values[f.name]; v != nil {
			pv.check(verr, f, *v)
		}
	}
	return verr.OrNil()
}

func (pv *PatientValidator) check(verr *apperrors.ValidationError, f patientField, value string) {
	err := pv.v.Var(value, f.tag)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		verr.Add(f.name, "is invalid")
		return
	}
	// validator stops at the first failing tag per field
	verr.Add(f.name, describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a valid date in YYYY-MM-DD format"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

func normalizeCreate(req *model.CreatePatientRequest) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Dob = strings.TrimSpace(req.Dob)
}

func normalizePatch(req *model.UpdatePatientRequest) {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	req.FirstName = trim(req.FirstName)
	req.LastName = trim(req.LastName)
	req.PhoneNumber = trim(req.PhoneNumber)
	req.Dob = trim(req.Dob)
	if req.Email != nil {
		v := normalizeEmail(*req.Email)
		req.Email = &v
	}
}

// normalizeEmail trims and lowercases, making email uniqueness case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
