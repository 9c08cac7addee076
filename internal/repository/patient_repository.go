package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patientrecords/internal/metrics"
	"patientrecords/internal/model"
)

// PatientRepository defines patient persistence operations.
type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	FindByID(ctx context.Context, id uint) (*model.Patient, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Patient, error)
	List(ctx context.Context) ([]model.Patient, error)
	Count(ctx context.Context) (int64, error)
	// Update writes only the named columns of patient; updated_at is always refreshed.
	Update(ctx context.Context, patient *model.Patient, columns []string) error
	Delete(ctx context.Context, id uint) error
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo PatientRepository) error) error
}

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

// Create inserts a patient and fills its id and timestamps.
func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (err error) {
	defer metrics.ObserveStore("patient.create", time.Now(), &err)
	return translateError(r.db.WithContext(ctx).Create(patient).Error)
}

// FindByID finds a patient by ID.
func (r *patientRepository) FindByID(ctx context.Context, id uint) (_ *model.Patient, err error) {
	defer metrics.ObserveStore("patient.find", time.Now(), &err)
	var patient model.Patient
	if err := r.db.WithContext(ctx).First(&patient, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &patient, nil
}

// FindByIDForUpdate finds a patient by ID with row-level lock for update.
// Dialects without row locks ignore the clause.
func (r *patientRepository) FindByIDForUpdate(ctx context.Context, id uint) (_ *model.Patient, err error) {
	defer metrics.ObserveStore("patient.find_for_update", time.Now(), &err)
	var patient model.Patient
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&patient, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &patient, nil
}

// List returns all patients, newest first.
func (r *patientRepository) List(ctx context.Context) (_ []model.Patient, err error) {
	defer metrics.ObserveStore("patient.list", time.Now(), &err)
	patients := make([]model.Patient, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").
		Find(&patients).Error; err != nil {
		return nil, translateError(err)
	}
	return patients, nil
}

// Count returns the number of stored patients.
func (r *patientRepository) Count(ctx context.Context) (_ int64, err error) {
	defer metrics.ObserveStore("patient.count", time.Now(), &err)
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Patient{}).Count(&n).Error; err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// Update writes the selected columns of patient.
func (r *patientRepository) Update(ctx context.Context, patient *model.Patient, columns []string) (err error) {
	defer metrics.ObserveStore("patient.update", time.Now(), &err)
	selected := make([]string, 0, len(columns)+1)
	selected = append(selected, columns...)
	selected = append(selected, "updated_at")

	res := r.db.WithContext(ctx).Model(patient).Select(selected).Updates(patient)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a patient permanently.
func (r *patientRepository) Delete(ctx context.Context, id uint) (err error) {
	defer metrics.ObserveStore("patient.delete", time.Now(), &err)
	res := r.db.WithContext(ctx).Delete(&model.Patient{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *patientRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo PatientRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &patientRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
