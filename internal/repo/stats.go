// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used to build
// author projections (recipe counts) without loading the recipes.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RecipeCountsByAuthor returns the number of recipes for each of authorIDs.
// Authors without recipes are absent from the map.
func RecipeCountsByAuthor(ctx context.Context, db *gorm.DB, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.AuthorID] = r.Total
	}
	return out, nil
}
