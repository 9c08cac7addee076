package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"patientrecords/internal/metrics"
	"patientrecords/internal/model"
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (err error) {
	defer metrics.ObserveStore("user.create", time.Now(), &err)
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (_ *model.User, err error) {
	defer metrics.ObserveStore("user.find", time.Now(), &err)
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (_ *model.User, err error) {
	defer metrics.ObserveStore("user.find_by_email", time.Now(), &err)
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) (_ []model.User, err error) {
	defer metrics.ObserveStore("user.list", time.Now(), &err)
	users := make([]model.User, 0)
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, translateError(err)
	}
	return users, nil
}
