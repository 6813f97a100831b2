// Repository functions for the User model. Thin by design: ownership rules
// and credential checks live in the service layer.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/domain"
)

// CreateUser inserts a new user row. A duplicate email surfaces as
// ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, name, email, passwordHash, googleID string) (*domain.User, error) {
	u := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		GoogleID:  googleID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches a user by email.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByGoogleID fetches a user by Google subject id.
func GetUserByGoogleID(ctx context.Context, db *gorm.DB, googleID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("google_id = ?", googleID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by primary key.
func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// LinkGoogleID attaches a Google subject id to an existing account, used
// when a federated login matches an account created by password.
func LinkGoogleID(ctx context.Context, db *gorm.DB, userID, googleID string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("google_id", googleID).Error
}
