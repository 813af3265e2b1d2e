package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// Field limits shared by recipe authoring.
const (
	MaxRecipeNameLen = 100
	MaxAmount        = 32767
	MaxCookingTime   = 32767
)

// FlexInt is a JSON integer that may also arrive as a string of ASCII digits.
// The raw token is kept so an invalid value becomes a field error instead of
// failing the whole request body. A JSON null leaves a *FlexInt nil.
type FlexInt struct {
	raw json.RawMessage
}

// NewFlexInt returns a FlexInt holding n.
func NewFlexInt(n int64) *FlexInt {
	return &FlexInt{raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

// UnmarshalJSON stores the raw token.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	f.raw = append(f.raw[:0], b...)
	return nil
}

// MarshalJSON writes the raw token back.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// Int returns the integer value. Integral JSON numbers and digit-only
// strings are accepted; fractions, exponents, booleans and other strings
// are not.
func (f *FlexInt) Int() (int64, bool) {
	if f == nil {
		return 0, false
	}
	b := bytes.TrimSpace(f.raw)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil || !isDigits(s) {
			return 0, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

// String renders the raw token for messages.
func (f *FlexInt) String() string {
	if f == nil {
		return ""
	}
	return strings.Trim(string(f.raw), `"`)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IngredientAmount is one candidate ingredient line of a recipe payload.
type IngredientAmount struct {
	ID     *FlexInt `json:"id"`
	Amount *FlexInt `json:"amount"`
}

// RecipeInput is the authorable part of a recipe payload. Nil fields were
// absent from the request.
type RecipeInput struct {
	Ingredients []IngredientAmount `json:"ingredients"`
	Image       *string            `json:"image"`
	Name        *string            `json:"name"`
	Text        *string            `json:"text"`
	CookingTime *FlexInt           `json:"cooking_time"`
}

// RecipeDraft is a validated RecipeInput.
type RecipeDraft struct {
	Name        string
	Text        string
	CookingTime int
	Lines       []domain.RecipeIngredient
	Image       *Image // nil when the update keeps the current image
}

// IngredientLookup returns which of ids exist in the catalog.
type IngredientLookup func(ctx context.Context, ids []uint) (map[uint]bool, error)

// RecipeValidator checks recipe payloads before anything is written.
type RecipeValidator struct {
	Lookup        IngredientLookup
	MaxImageBytes int64
}

// updateRequired lists the fields an update must carry, in report order.
var updateRequired = []string{"ingredients", "name", "text", "cooking_time"}

// Validate checks in. With partial set (updates) the image may be omitted,
// but ingredients, name, text and cooking_time must all be present; the
// missing ones are reported together under "required_fields" once every
// present field is valid.
func (v RecipeValidator) Validate(ctx context.Context, in RecipeInput, partial bool) (*RecipeDraft, error) {
	errs := FieldErrors{}
	draft := &RecipeDraft{}

	present := map[string]bool{
		"ingredients":  in.Ingredients != nil,
		"name":         in.Name != nil,
		"text":         in.Text != nil,
		"cooking_time": in.CookingTime != nil,
	}
	if !partial {
		for _, f := range updateRequired {
			if !present[f] {
				errs.Add(f, "this field is required")
			}
		}
		if in.Image == nil {
			errs.Add("image", "this field is required")
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			errs.Add("name", "this field may not be blank")
		case utf8.RuneCountInString(name) > MaxRecipeNameLen:
			errs.Add("name", fmt.Sprintf("ensure this field has no more than %d characters", MaxRecipeNameLen))
		default:
			draft.Name = name
		}
	}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			errs.Add("text", "this field may not be blank")
		}
		draft.Text = text
	}
	if in.CookingTime != nil {
		n, ok := in.CookingTime.Int()
		switch {
		case !ok:
			errs.Add("cooking_time", "a valid integer is required")
		case n < 1:
			errs.Add("cooking_time", "cooking time must be at least 1 minute")
		case n > MaxCookingTime:
			errs.Add("cooking_time", fmt.Sprintf("cooking time must not exceed %d minutes", MaxCookingTime))
		default:
			draft.CookingTime = int(n)
		}
	}
	if in.Image != nil {
		img, err := DecodeImage(*in.Image, v.MaxImageBytes)
		if err != nil {
			errs.Add("image", err.Error())
		}
		draft.Image = img
	}
	if in.Ingredients != nil {
		lines, msg, err := v.validateIngredients(ctx, in.Ingredients)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs.Add("ingredients", msg)
		}
		draft.Lines = lines
	}

	if len(errs) > 0 {
		return nil, errs.Err()
	}

	if partial {
		var missing []string
		for _, f := range updateRequired {
			if !present[f] {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return nil, fieldError("required_fields",
				"the following fields are required on update: "+strings.Join(missing, ", "))
		}
	}
	return draft, nil
}

// validateIngredients applies the ingredient list rules in order: non-empty,
// every item has id and amount, ids do not repeat, all ids exist, every
// amount is a positive integer. It returns the first failing rule's message;
// a non-nil error means the lookup itself failed.
func (v RecipeValidator) validateIngredients(ctx context.Context, items []IngredientAmount) ([]domain.RecipeIngredient, string, error) {
	if len(items) == 0 {
		return nil, "at least one ingredient is required", nil
	}

	for _, it := range items {
		if it.ID == nil || it.Amount == nil {
			return nil, "each ingredient must contain id and amount", nil
		}
	}

	ids := make([]uint, len(items))
	seen := make(map[int64]bool, len(items))
	for i, it := range items {
		id, ok := it.ID.Int()
		if !ok || id < 1 {
			return nil, fmt.Sprintf("invalid ingredient id %q", it.ID.String()), nil
		}
		if seen[id] {
			return nil, "ingredients must not repeat", nil
		}
		seen[id] = true
		ids[i] = uint(id)
	}

	found, err := v.Lookup(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("lookup ingredients: %w", err)
	}
	var missing []uint
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		parts := make([]string, len(missing))
		for i, id := range missing {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		return nil, fmt.Sprintf("ingredients with ids %s do not exist", strings.Join(parts, ", ")), nil
	}

	lines := make([]domain.RecipeIngredient, len(items))
	for i, it := range items {
		amount, ok := it.Amount.Int()
		if !ok || amount < 1 || amount > MaxAmount {
			return nil, fmt.Sprintf("amount for ingredient %d must be an integer greater than 0", ids[i]), nil
		}
		lines[i] = domain.RecipeIngredient{IngredientID: ids[i], Amount: int(amount)}
	}
	return lines, "", nil
}
