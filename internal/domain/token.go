package domain

import "time"

// RevokedToken records a logged-out access token by its JWT ID so it is
// rejected until it would have expired anyway.
type RevokedToken struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (RevokedToken) TableName() string { return "revoked_tokens" }
