package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RevokeToken records jti as revoked until expiresAt. Revoking twice is a no-op.
func RevokeToken(ctx context.Context, db *gorm.DB, jti string, userID uint, expiresAt time.Time) error {
	rec := &domain.RevokedToken{ID: jti, UserID: userID, ExpiresAt: expiresAt.UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

// IsTokenRevoked reports whether jti has been revoked and not yet expired.
func IsTokenRevoked(ctx context.Context, db *gorm.DB, jti string, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.RevokedToken{}).
		Where("id = ? AND expires_at > ?", jti, now.UTC()).
		Count(&n).Error
	return n > 0, err
}

// PurgeExpiredTokens deletes revocation records past their expiry and
// returns how many were removed.
func PurgeExpiredTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.RevokedToken{})
	return res.RowsAffected, res.Error
}
