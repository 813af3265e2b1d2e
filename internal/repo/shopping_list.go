package repo

import (
	"context"

	"gorm.io/gorm"
)

// IngredientTotal is one aggregated shopping-list group.
type IngredientTotal struct {
	Name            string
	MeasurementUnit string
	Total           int64
}

// ShoppingListTotals sums ingredient amounts across every recipe in the
// user's cart, grouped by exact (name, unit) and ordered by name then unit.
// Ordering compares bytes on every driver, so "Salt" sorts before "apple".
func ShoppingListTotals(ctx context.Context, db *gorm.DB, userID uint) ([]IngredientTotal, error) {
	coll := byteCollation(db.Dialector.Name())
	var out []IngredientTotal
	err := db.WithContext(ctx).Raw(`
SELECT i.name AS name,
       i.measurement_unit AS measurement_unit,
       SUM(ri.amount) AS total
FROM shopping_cart sc
JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
JOIN ingredients i ON i.id = ri.ingredient_id
WHERE sc.user_id = ?
GROUP BY i.name, i.measurement_unit
ORDER BY i.name COLLATE `+coll+` ASC, i.measurement_unit COLLATE `+coll+` ASC`, userID).
		Scan(&out).Error
	return out, err
}

// byteCollation names the bytewise collation of a gorm dialect. Postgres
// otherwise sorts by the database locale.
func byteCollation(dialect string) string {
	if dialect == "postgres" {
		return `"C"`
	}
	return "BINARY"
}
