package services

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// ShoppingListHeader starts every rendered shopping list.
const ShoppingListHeader = "Shopping list:"

// ShoppingListService aggregates the ingredients of a user's cart.
type ShoppingListService struct {
	DB *gorm.DB
}

// Totals returns per (name, unit) sums over the user's cart, ordered by name.
func (s *ShoppingListService) Totals(ctx context.Context, userID uint) ([]repo.IngredientTotal, error) {
	tr := otel.Tracer("services/ShoppingListService")
	ctx, span := tr.Start(ctx, "Totals",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))),
	)
	defer span.End()

	return repo.ShoppingListTotals(ctx, s.DB, userID)
}

// Render builds the text report of a user's shopping list.
func (s *ShoppingListService) Render(ctx context.Context, userID uint) (string, error) {
	totals, err := s.Totals(ctx, userID)
	if err != nil {
		return "", err
	}
	return RenderShoppingList(totals), nil
}

// RenderShoppingList formats totals as the header, a blank line and one
// "<name> (<unit>) - <total>" line per group.
func RenderShoppingList(totals []repo.IngredientTotal) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	b.WriteString("\n\n")
	for _, t := range totals {
		b.WriteString(t.Name)
		b.WriteString(" (")
		b.WriteString(t.MeasurementUnit)
		b.WriteString(") - ")
		b.WriteString(strconv.FormatInt(t.Total, 10))
		b.WriteByte('\n')
	}
	return b.String()
}
