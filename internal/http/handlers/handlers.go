// Package handlers exposes the REST endpoints of the recipes API.
//
// Handlers are transport-thin: they bind input, call application services,
// and translate results into HTTP responses. Services are consumed through
// the interfaces below so tests can substitute stubs.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RecipeService defines recipe reads and owner-only writes.
type RecipeService interface {
	ListPage(ctx context.Context, viewerID uint, q services.RecipeQuery, page, pageSize int) ([]services.RecipeView, int64, error)
	Get(ctx context.Context, viewerID, id uint) (*services.RecipeView, error)
	Brief(ctx context.Context, id uint) (*domain.Recipe, error)
	Create(ctx context.Context, authorID uint, in services.RecipeInput) (*services.RecipeView, error)
	Update(ctx context.Context, authorID, id uint, in services.RecipeInput) (*services.RecipeView, error)
	Delete(ctx context.Context, authorID, id uint) error
	ResolveShortCode(ctx context.Context, code string) (uint, error)
}

// RelationService toggles favorite, cart and subscription rows.
type RelationService interface {
	Add(ctx context.Context, rel services.Relation, ownerID, targetID uint) error
	Remove(ctx context.Context, rel services.Relation, ownerID, targetID uint) error
}

// UserService defines account and author-projection operations.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Get(ctx context.Context, viewerID, id uint) (*services.UserView, error)
	ListPage(ctx context.Context, viewerID uint, page, pageSize int) ([]services.UserView, int64, error)
	SetPassword(ctx context.Context, userID uint, in services.SetPasswordInput) error
	SetAvatar(ctx context.Context, userID uint, dataURI *string) (*domain.User, error)
	ClearAvatar(ctx context.Context, userID uint) error
	Author(ctx context.Context, viewerID, authorID uint, recipesLimit int) (*services.AuthorView, error)
	SubscriptionsPage(ctx context.Context, viewerID uint, page, pageSize, recipesLimit int) ([]services.AuthorView, int64, error)
}

// AuthService exchanges credentials for tokens and revokes them.
type AuthService interface {
	Login(ctx context.Context, in services.LoginInput) (string, error)
	Logout(ctx context.Context, sess services.Session) error
}

// IngredientService serves the ingredient catalog.
type IngredientService interface {
	Search(ctx context.Context, prefix string) ([]domain.Ingredient, error)
	Get(ctx context.Context, id uint) (*domain.Ingredient, error)
}

// ShoppingListService renders a user's aggregated shopping list.
type ShoppingListService interface {
	Render(ctx context.Context, userID uint) (string, error)
}

// MediaResolver maps stored object keys to public URLs. storage.Store
// satisfies it.
type MediaResolver interface {
	URL(key string) string
}

//
// Handler wiring
//

// Services bundles the application services the handlers depend on.
type Services struct {
	Recipes      RecipeService
	Relations    RelationService
	Users        UserService
	Auth         AuthService
	Ingredients  IngredientService
	ShoppingList ShoppingListService
	Media        MediaResolver
}

// Options tunes presentation.
//
//   - PublicBaseURL: scheme and host used for absolute links; when empty the
//     request's own scheme and host are used.
//   - PageSize / MaxPageSize: default and upper bound of the `limit` query
//     parameter.
type Options struct {
	PublicBaseURL string
	PageSize      int
	MaxPageSize   int
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	svc  Services
	opts Options
}

// New constructs Handlers bound to the given services.
func New(svc Services, opts Options) *Handlers {
	if opts.PageSize <= 0 {
		opts.PageSize = 6
	}
	if opts.MaxPageSize < opts.PageSize {
		opts.MaxPageSize = 100
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Handlers{svc: svc, opts: opts}
}

//
// Helpers
//

// viewer returns the authenticated user id, or 0 for anonymous requests.
func viewer(c *gin.Context) uint { return middleware.UserID(c) }

// pageFrom reads `page` and `limit` from the query string.
func (h *Handlers) pageFrom(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("limit"), h.opts.PageSize, h.opts.MaxPageSize)
}

// idParam parses a positive integer path parameter. Malformed ids answer 404
// like a missing row.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, valid := services.ParseShortCode(c.Param(name))
	if !valid {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
		return 0, false
	}
	return id, true
}

// recipesLimit reads the optional `recipes_limit` query parameter. Absent
// means no limit (-1). Anything but a non-negative integer aborts with a
// field error.
func recipesLimit(c *gin.Context) (int, bool) {
	raw, present := c.GetQuery("recipes_limit")
	if !present {
		return -1, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", map[string][]string{
			"recipes_limit": {"must be a non-negative integer"},
		})
		return 0, false
	}
	return n, true
}
