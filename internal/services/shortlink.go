package services

import (
	"context"
	"strconv"
)

// ShortCode derives the short-link code of a recipe. Codes are the decimal
// recipe id, so no code table is needed.
func ShortCode(recipeID uint) string {
	return strconv.FormatUint(uint64(recipeID), 10)
}

// ParseShortCode accepts ASCII digits only and rejects zero and overflow.
func ParseShortCode(code string) (uint, bool) {
	if !isDigits(code) {
		return 0, false
	}
	n, err := strconv.ParseUint(code, 10, 0)
	if err != nil || n == 0 || uint64(uint(n)) != n {
		return 0, false
	}
	return uint(n), true
}

// ResolveShortCode returns the id of the recipe code points to, or
// ErrRecipeNotFound when the code is malformed or the recipe is gone.
func (s *RecipeService) ResolveShortCode(ctx context.Context, code string) (uint, error) {
	id, ok := ParseShortCode(code)
	if !ok {
		return 0, ErrRecipeNotFound
	}
	r, err := s.Brief(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.ID, nil
}
