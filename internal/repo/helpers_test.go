package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// newTestDB opens a private in-memory database with foreign keys enforced
// and the full schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", Username: name, FirstName: name, LastName: "L", Password: "x"}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mkIngredient(t *testing.T, db *gorm.DB, name, unit string) *domain.Ingredient {
	t.Helper()
	ing := &domain.Ingredient{Name: name, MeasurementUnit: unit, SearchName: name}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	return ing
}

func mkRecipe(t *testing.T, db *gorm.DB, author *domain.User, name string, lines ...domain.RecipeIngredient) *domain.Recipe {
	t.Helper()
	r := &domain.Recipe{AuthorID: author.ID, Name: name, Text: "text", CookingTime: 10, Image: "recipes/" + name + ".png"}
	if err := CreateRecipe(context.Background(), db, r, lines); err != nil {
		t.Fatalf("create recipe %s: %v", name, err)
	}
	return r
}

func line(ing *domain.Ingredient, amount int) domain.RecipeIngredient {
	return domain.RecipeIngredient{IngredientID: ing.ID, Amount: amount}
}
