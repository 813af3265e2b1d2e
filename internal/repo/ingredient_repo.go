package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchIngredients returns ingredients whose folded name starts with
// foldedPrefix, ordered by name. An empty prefix lists the whole catalog.
func SearchIngredients(ctx context.Context, db *gorm.DB, foldedPrefix string) ([]domain.Ingredient, error) {
	q := db.WithContext(ctx).Model(&domain.Ingredient{})
	if foldedPrefix != "" {
		q = q.Where(`search_name LIKE ? ESCAPE '\'`, likeEscaper.Replace(foldedPrefix)+"%")
	}
	var out []domain.Ingredient
	err := q.Order("name asc").Order("measurement_unit asc").Find(&out).Error
	return out, err
}

// GetIngredient fetches an ingredient by id or returns ErrNotFound.
func GetIngredient(ctx context.Context, db *gorm.DB, id uint) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	if err := db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// ExistingIngredientIDs returns the subset of ids present in the catalog.
func ExistingIngredientIDs(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var rows []uint
	err := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Where("id IN ?", ids).
		Pluck("id", &rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range rows {
		found[id] = true
	}
	return found, nil
}

// EnsureIngredient inserts ing unless the (name, unit) pair already exists.
// It reports whether a row was created.
func EnsureIngredient(ctx context.Context, db *gorm.DB, ing *domain.Ingredient) (bool, error) {
	var existing domain.Ingredient
	err := db.WithContext(ctx).
		Where("name = ? AND measurement_unit = ?", ing.Name, ing.MeasurementUnit).
		First(&existing).Error
	if err == nil {
		*ing = existing
		return false, nil
	}
	if !IsNotFound(err) {
		return false, err
	}
	if err := db.WithContext(ctx).Create(ing).Error; err != nil {
		if IsDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
