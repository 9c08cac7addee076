package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"patientrecords/internal/config"
	"patientrecords/internal/db"
	"patientrecords/internal/logger"
	"patientrecords/internal/repository"
	"patientrecords/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel)
	log.Info("starting seed")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	// A running server picks these up once its cached lists expire.
	patientService := service.NewPatientService(repository.NewPatientRepository(gormDB), nil, 0, log)
	seedService := service.NewSeedService(repository.NewUserRepository(gormDB), patientService, cfg.SeedPassword, log)

	result, err := seedService.Seed(context.Background())
	if err != nil {
		log.WithError(err).Fatal("seed")
	}

	log.WithFields(logrus.Fields{
		"users_created":    result.UsersCreated,
		"patients_created": result.PatientsCreated,
		"skipped":          result.Skipped,
	}).Info("seed completed")
}
