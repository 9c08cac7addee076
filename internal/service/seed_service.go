package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
	"patientrecords/internal/repository"
)

// SeedResult counts what a seed run created and skipped.
type SeedResult struct {
	UsersCreated    int `json:"usersCreated"`
	PatientsCreated int `json:"patientsCreated"`
	Skipped         int `json:"skipped"`
}

// SeedService populates demo accounts and patients. Running it twice creates nothing new.
type SeedService interface {
	Seed(ctx context.Context) (SeedResult, error)
}

type seedService struct {
	userRepo repository.UserRepository
	patients PatientService
	password string
	log      *logrus.Entry
}

// NewSeedService creates a seed service; password is used for both demo accounts.
func NewSeedService(userRepo repository.UserRepository, patients PatientService, password string, log *logrus.Logger) SeedService {
	return &seedService{
		userRepo: userRepo,
		patients: patients,
		password: password,
		log:      log.WithField("component", "seed"),
	}
}

var seedUsers = []model.User{
	{Email: "admin@example.com", FirstName: "Admin", LastName: "User", Role: model.RoleAdmin},
	{Email: "user@example.com", FirstName: "Regular", LastName: "User", Role: model.RoleUser},
}

var seedPatients = []model.CreatePatientRequest{
	{FirstName: "John", LastName: "Doe", Email: "john.doe@email.com", PhoneNumber: "+1-555-0123", Dob: "1980-01-15"},
	{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@email.com", PhoneNumber: "+1-555-0124", Dob: "1975-06-22"},
	{FirstName: "Michael", LastName: "Johnson", Email: "michael.johnson@email.com", PhoneNumber: "+1-555-0125", Dob: "1990-03-10"},
	{FirstName: "Emily", LastName: "Davis", Email: "emily.davis@email.com", PhoneNumber: "+1-555-0126", Dob: "1985-09-18"},
	{FirstName: "David", LastName: "Wilson", Email: "david.wilson@email.com", PhoneNumber: "+1-555-0127", Dob: "1992-12-05"},
}

func (s *seedService) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	hashedPassword, err := hashPassword(s.password)
	if err != nil {
		return result, err
	}

	for _, u := range seedUsers {
		user := u
		user.PasswordHash = hashedPassword
		if err := s.userRepo.Create(ctx, &user); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("seed user %s: %w", user.Email, err)
		}
		result.UsersCreated++
	}

	for _, p := range seedPatients {
		if _, err := s.patients.Create(ctx, p); err != nil {
			if errors.Is(err, apperrors.ErrPatientEmailTaken) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("seed patient %s: %w", p.Email, err)
		}
		result.PatientsCreated++
	}

	s.log.WithFields(logrus.Fields{
		"users":    result.UsersCreated,
		"patients": result.PatientsCreated,
		"skipped":  result.Skipped,
	}).Info("seed completed")
	return result, nil
}
