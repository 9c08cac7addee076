package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"patientrecords/internal/db"
	"patientrecords/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logrus.New())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() { _ = db.Close(gormDB) })
	return gormDB
}

func samplePatient(email string) *model.Patient {
	return &model.Patient{
		FirstName:   "John",
		LastName:    "Doe",
		Email:       email,
		PhoneNumber: "+1-555-0123",
		Dob:         model.NewDate(1980, time.January, 15),
	}
}

func TestPatientRepository_CreateAndFind(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	p := samplePatient("john.doe@email.com")
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "john.doe@email.com", found.Email)
	assert.Equal(t, "1980-01-15", found.Dob.String())

	_, err = repo.FindByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatientRepository_DuplicateEmail(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, samplePatient("dup@email.com")))
	err := repo.Create(ctx, samplePatient("dup@email.com"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPatientRepository_ListNewestFirst(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, email := range []string{"a@email.com", "b@email.com", "c@email.com"} {
		require.NoError(t, repo.Create(ctx, samplePatient(email)))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c@email.com", list[0].Email)
	assert.Equal(t, "b@email.com", list[1].Email)
	assert.Equal(t, "a@email.com", list[2].Email)
}

func TestPatientRepository_UpdateSelectedColumns(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	p := samplePatient("john.doe@email.com")
	require.NoError(t, repo.Create(ctx, p))

	// only first_name is written even though last_name changed in memory
	p.FirstName = "Jane"
	p.LastName = "Ignored"
	require.NoError(t, repo.Update(ctx, p, []string{"first_name"}))

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", found.FirstName)
	assert.Equal(t, "Doe", found.LastName)

	missing := samplePatient("nobody@email.com")
	missing.ID = 999999
	assert.ErrorIs(t, repo.Update(ctx, missing, []string{"first_name"}), ErrNotFound)
}

func TestPatientRepository_UpdateDuplicateEmail(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	first := samplePatient("first@email.com")
	second := samplePatient("second@email.com")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	second.Email = "first@email.com"
	assert.ErrorIs(t, repo.Update(ctx, second, []string{"email"}), ErrDuplicateKey)

	found, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "second@email.com", found.Email)
}

func TestPatientRepository_Delete(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	p := samplePatient("john.doe@email.com")
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
}

func TestPatientRepository_TransactionRollback(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(ctx context.Context, tx PatientRepository) error {
		p := samplePatient("rolled@email.com")
		if err := tx.Create(ctx, p); err != nil {
			return err
		}
		locked, err := tx.FindByIDForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "rolled@email.com", locked.Email)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
