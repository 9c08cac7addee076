package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"patientrecords/internal/cache"
	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
	"patientrecords/internal/repository"
)

const (
	defaultPatientCacheTTL = time.Minute
	patientListCacheKey    = "patients:list"
)

// PatientService owns the patient set: validation, existence and email uniqueness.
type PatientService interface {
	Create(ctx context.Context, req model.CreatePatientRequest) (*model.Patient, error)
	List(ctx context.Context) ([]model.Patient, error)
	Get(ctx context.Context, id uint) (*model.Patient, error)
	Update(ctx context.Context, id uint, patch model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id uint) error
}

type patientService struct {
	repo      repository.PatientRepository
	validator *PatientValidator
	cache     *cache.Client
	ttl       time.Duration
	sf        singleflight.Group
	log       *logrus.Entry
}

// NewPatientService builds a PatientService. A nil cache disables caching.
func NewPatientService(repo repository.PatientRepository, cache *cache.Client, ttl time.Duration, log *logrus.Logger) PatientService {
	if ttl <= 0 {
		ttl = defaultPatientCacheTTL
	}
	return &patientService{
		repo:      repo,
		validator: NewPatientValidator(),
		cache:     cache,
		ttl:       ttl,
		log:       log.WithField("component", "patient_service"),
	}
}

func (s *patientService) cacheKey(id uint) string {
	return fmt.Sprintf("patient:%d", id)
}

func (s *patientService) Create(ctx context.Context, req model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validator.ValidateCreate(&req); err != nil {
		return nil, err
	}
	dob, err := model.ParseDate(req.Dob)
	if err != nil {
		return nil, apperrors.NewValidationError("dob", "must be a valid date in YYYY-MM-DD format")
	}

	var created *model.Patient
	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.PatientRepository) error {
		patient := &model.Patient{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Dob:         dob,
		}
		if err := tx.Create(ctx, patient); err != nil {
			return err
		}
		stored, err := tx.FindByID(ctx, patient.ID)
		if err != nil {
			return err
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, s.fail("create", err)
	}

	s.invalidate(ctx)
	s.log.WithField("patient_id", created.ID).Info("patient created")
	return created, nil
}

func (s *patientService) List(ctx context.Context) ([]model.Patient, error) {
	if !s.cache.Enabled() {
		patients, err := s.repo.List(ctx)
		if err != nil {
			return nil, s.fail("list", err)
		}
		return patients, nil
	}

	v, err, _ := s.sf.Do(patientListCacheKey, func() (interface{}, error) {
		var cached []model.Patient
		if s.cache.GetJSON(ctx, patientListCacheKey, &cached) {
			return cached, nil
		}
		patients, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetJSON(ctx, patientListCacheKey, patients, s.ttl)
		return patients, nil
	})
	if err != nil {
		return nil, s.fail("list", err)
	}
	patients := v.([]model.Patient)
	if patients == nil {
		patients = []model.Patient{}
	}
	return patients, nil
}

func (s *patientService) Get(ctx context.Context, id uint) (*model.Patient, error) {
	var cached model.Patient
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), patient, s.ttl)
	return patient, nil
}

// Update applies the supplied fields of patch. The read, write and re-read run in one transaction.
func (s *patientService) Update(ctx context.Context, id uint, patch model.UpdatePatientRequest) (*model.Patient, error) {
	if err := s.validator.ValidatePatch(&patch); err != nil {
		return nil, err
	}
	var dob model.Date
	if patch.Dob != nil {
		parsed, err := model.ParseDate(*patch.Dob)
		if err != nil {
			return nil, apperrors.NewValidationError("dob", "must be a valid date in YYYY-MM-DD format")
		}
		dob = parsed
	}

	var updated *model.Patient
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.PatientRepository) error {
		existing, err := tx.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		columns := applyPatch(existing, patch, dob)
		if err := tx.Update(ctx, existing, columns); err != nil {
			return err
		}
		updated, err = tx.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.fail("update", err)
	}

	s.invalidate(ctx, id)
	s.log.WithFields(logrus.Fields{"patient_id": id, "fields": len(patchColumns(patch))}).Info("patient updated")
	return updated, nil
}

func (s *patientService) Delete(ctx context.Context, id uint) error {
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.PatientRepository) error {
		if _, err := tx.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return s.fail("delete", err)
	}

	s.invalidate(ctx, id)
	s.log.WithField("patient_id", id).Info("patient deleted")
	return nil
}

// fail maps repository sentinels onto domain errors. Anything else is logged and wrapped as internal.
func (s *patientService) fail(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.ErrPatientNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperrors.ErrPatientEmailTaken
	case apperrors.KindOf(err) != apperrors.KindInternal:
		return err
	}
	s.log.WithError(err).WithField("op", op).Error("patient store failure")
	return fmt.Errorf("%s patient: %w", op, err)
}

func (s *patientService) invalidate(ctx context.Context, ids ...uint) {
	keys := []string{patientListCacheKey}
	for _, id := range ids {
		keys = append(keys, s.cacheKey(id))
	}
	_ = s.cache.Delete(ctx, keys...)
}

// applyPatch copies the supplied fields onto p and returns the columns to write.
func applyPatch(p *model.Patient, patch model.UpdatePatientRequest, dob model.Date) []string {
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		p.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Dob != nil {
		p.Dob = dob
	}
	return patchColumns(patch)
}

func patchColumns(patch model.UpdatePatientRequest) []string {
	columns := make([]string, 0, 5)
	if patch.FirstName != nil {
		columns = append(columns, "first_name")
	}
	if patch.LastName != nil {
		columns = append(columns, "last_name")
	}
	if patch.Email != nil {
		columns = append(columns, "email")
	}
	if patch.PhoneNumber != nil {
		columns = append(columns, "phone_number")
	}
	if patch.Dob != nil {
		columns = append(columns, "date_of_birth")
	}
	return columns
}
