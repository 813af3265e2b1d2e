// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model
// and the subscription projections built on top of it.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - Unique violations on email/username propagate as raw DB errors; use
//     IsDuplicate to classify them.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// CreateUser inserts u and fills its generated ID.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by primary key or returns ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by login email or returns ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserFieldTaken reports whether any user already has column = value.
// column must be a trusted identifier ("email" or "username").
func UserFieldTaken(ctx context.Context, db *gorm.DB, column, value string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where(column+" = ?", value).
		Count(&n).Error
	return n > 0, err
}

// CountUsers returns the total number of registered users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}

// ListUsersPage returns users ordered by id.
func ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateUserPassword stores a new password hash. Returns ErrNotFound when
// the user does not exist.
func UpdateUserPassword(ctx context.Context, db *gorm.DB, id uint, hash string) error {
	return updateUserColumn(ctx, db, id, "password", hash)
}

// UpdateUserAvatar stores the avatar storage key ("" clears it).
func UpdateUserAvatar(ctx context.Context, db *gorm.DB, id uint, key string) error {
	return updateUserColumn(ctx, db, id, "avatar", key)
}

func updateUserColumn(ctx context.Context, db *gorm.DB, id uint, column string, value any) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSubscriptions returns how many authors subscriberID follows.
func CountSubscriptions(ctx context.Context, db *gorm.DB, subscriberID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("user_id = ?", subscriberID).
		Count(&total).Error
	return total, err
}

// ListSubscribedAuthorsPage returns the authors subscriberID follows, most
// recent subscription first.
func ListSubscribedAuthorsPage(ctx context.Context, db *gorm.DB, subscriberID uint, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Joins("JOIN subscriptions s ON s.author_id = users.id").
		Where("s.user_id = ?", subscriberID).
		Order("s.created_at desc").
		Order("s.id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
