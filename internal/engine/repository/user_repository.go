package repository

import (
	"context"
	"errors"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRecordNotFound is returned when a lookup matches no row.
var ErrRecordNotFound = errors.New("record not found")

// UserRepository reads tenants and their credentials.
type UserRepository interface {
	FindAll(ctx context.Context) ([]entity.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindFirst(ctx context.Context) (*entity.User, error)
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) FindAll(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Preload("ApiSetting").Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Preload("ApiSetting").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindFirst returns the oldest tenant.
func (r *userRepository) FindFirst(ctx context.Context) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Preload("ApiSetting").Order("created_at ASC").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
