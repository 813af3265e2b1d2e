// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides a single set of presence operations
// shared by every (owner, target) join table: favorites, shopping cart and
// subscriptions.
//
// The unique index on (owner, target) is the authority for concurrent
// inserts: the loser of a race receives ErrDuplicate.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// JoinTable describes an (owner, target) presence table. Column and table
// names are compile-time constants and never come from user input.
type JoinTable struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
}

// Known join tables.
var (
	Favorites = JoinTable{
		Table:        domain.Favorite{}.TableName(),
		OwnerColumn:  "user_id",
		TargetColumn: "recipe_id",
	}
	ShoppingCart = JoinTable{
		Table:        domain.ShoppingCart{}.TableName(),
		OwnerColumn:  "user_id",
		TargetColumn: "recipe_id",
	}
	Subscriptions = JoinTable{
		Table:        domain.Subscription{}.TableName(),
		OwnerColumn:  "user_id",
		TargetColumn: "author_id",
	}
)

// Exists reports whether the (owner, target) row is present.
func (t JoinTable) Exists(ctx context.Context, db *gorm.DB, ownerID, targetID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Table(t.Table).
		Where(t.OwnerColumn+" = ? AND "+t.TargetColumn+" = ?", ownerID, targetID).
		Count(&n).Error
	return n > 0, err
}

// Insert adds the (owner, target) row. A unique violation is returned as
// ErrDuplicate.
func (t JoinTable) Insert(ctx context.Context, db *gorm.DB, ownerID, targetID uint) error {
	err := db.WithContext(ctx).Exec(
		"INSERT INTO "+t.Table+" ("+t.OwnerColumn+", "+t.TargetColumn+", created_at) VALUES (?, ?, ?)",
		ownerID, targetID, time.Now().UTC(),
	).Error
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// Delete removes the (owner, target) row. Returns ErrNotFound when no row
// matched so callers can tell a no-op removal from an effective one.
func (t JoinTable) Delete(ctx context.Context, db *gorm.DB, ownerID, targetID uint) error {
	res := db.WithContext(ctx).Exec(
		"DELETE FROM "+t.Table+" WHERE "+t.OwnerColumn+" = ? AND "+t.TargetColumn+" = ?",
		ownerID, targetID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Targets returns which of targetIDs the owner has a row for. It backs the
// per-viewer flags of list responses with one query per page.
func (t JoinTable) Targets(ctx context.Context, db *gorm.DB, ownerID uint, targetIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(targetIDs))
	if ownerID == 0 || len(targetIDs) == 0 {
		return out, nil
	}
	var rows []uint
	err := db.WithContext(ctx).
		Table(t.Table).
		Where(t.OwnerColumn+" = ? AND "+t.TargetColumn+" IN ?", ownerID, targetIDs).
		Pluck(t.TargetColumn, &rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range rows {
		out[id] = true
	}
	return out, nil
}
