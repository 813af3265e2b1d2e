package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RecipeFilter narrows recipe listings. Zero values disable a condition.
type RecipeFilter struct {
	AuthorID    uint
	FavoritedBy uint
	InCartOf    uint
}

func (f RecipeFilter) apply(q *gorm.DB) *gorm.DB {
	if f.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", f.AuthorID)
	}
	if f.FavoritedBy != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = recipes.id AND f.user_id = ?)", f.FavoritedBy)
	}
	if f.InCartOf != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM shopping_cart c WHERE c.recipe_id = recipes.id AND c.user_id = ?)", f.InCartOf)
	}
	return q
}

// withRecipeRelations preloads the author and the ingredient lines (in
// insertion order) with their catalog entries.
func withRecipeRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.id asc")
		}).
		Preload("Ingredients.Ingredient")
}

// CountRecipes returns how many recipes match f.
func CountRecipes(ctx context.Context, db *gorm.DB, f RecipeFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Recipe{})).Count(&total).Error
	return total, err
}

// ListRecipesPage returns recipes matching f, newest first, with author and
// ingredient lines loaded.
func ListRecipesPage(ctx context.Context, db *gorm.DB, f RecipeFilter, offset, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	q := f.apply(db.WithContext(ctx).Model(&domain.Recipe{}))
	err := withRecipeRelations(q).
		Order("recipes.pub_date desc").
		Order("recipes.id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetRecipe fetches a recipe with its relations or returns ErrNotFound.
func GetRecipe(ctx context.Context, db *gorm.DB, id uint) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := withRecipeRelations(db.WithContext(ctx)).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipeBrief fetches the recipe row alone, without relations.
func GetRecipeBrief(ctx context.Context, db *gorm.DB, id uint) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecipesByAuthor returns an author's recipes newest first. A negative
// limit returns all of them.
func ListRecipesByAuthor(ctx context.Context, db *gorm.DB, authorID uint, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	q := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date desc").
		Order("id desc")
	if limit >= 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CreateRecipe inserts r and its ingredient lines. Call inside a transaction.
func CreateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe, lines []domain.RecipeIngredient) error {
	tx := db.WithContext(ctx)
	if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
		return err
	}
	return insertLines(tx, r.ID, lines)
}

// UpdateRecipe overwrites the authorable columns of recipe r.ID owned by
// r.AuthorID and replaces its ingredient lines. Returns ErrNotFound when no
// such recipe is owned by the author. Call inside a transaction.
func UpdateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe, lines []domain.RecipeIngredient) error {
	tx := db.WithContext(ctx)
	res := tx.Model(&domain.Recipe{}).
		Where("id = ? AND author_id = ?", r.ID, r.AuthorID).
		Updates(map[string]any{
			"name":         r.Name,
			"text":         r.Text,
			"cooking_time": r.CookingTime,
			"image":        r.Image,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if err := tx.Where("recipe_id = ?", r.ID).Delete(&domain.RecipeIngredient{}).Error; err != nil {
		return err
	}
	return insertLines(tx, r.ID, lines)
}

// DeleteRecipe removes a recipe owned by authorID; lines and relation rows
// follow through ON DELETE CASCADE. Returns ErrNotFound when nothing matched.
func DeleteRecipe(ctx context.Context, db *gorm.DB, id, authorID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&domain.Recipe{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func insertLines(tx *gorm.DB, recipeID uint, lines []domain.RecipeIngredient) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]domain.RecipeIngredient, len(lines))
	for i, l := range lines {
		rows[i] = domain.RecipeIngredient{RecipeID: recipeID, IngredientID: l.IngredientID, Amount: l.Amount}
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}
