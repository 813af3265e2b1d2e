package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// DTOs
//

// UserResponse is the public user representation.
type UserResponse struct {
	Email        string  `json:"email"         example:"cook@example.com"`
	ID           uint    `json:"id"            example:"1"`
	Username     string  `json:"username"      example:"cook"`
	FirstName    string  `json:"first_name"    example:"Ada"`
	LastName     string  `json:"last_name"     example:"Lovelace"`
	IsSubscribed bool    `json:"is_subscribed" example:"false"`
	Avatar       *string `json:"avatar"        example:"http://localhost:8080/media/avatars/7f1c.png"`
}

// RegisterResponse is returned after sign-up.
type RegisterResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RecipeIngredientResponse is one quantity line of a recipe.
type RecipeIngredientResponse struct {
	ID              uint   `json:"id"               example:"170"`
	Name            string `json:"name"             example:"sugar"`
	MeasurementUnit string `json:"measurement_unit" example:"g"`
	Amount          int    `json:"amount"           example:"100"`
}

// RecipeResponse is the full recipe representation.
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"         example:"Pancakes"`
	Image            string                     `json:"image"        example:"http://localhost:8080/media/recipes/5d2e.png"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time" example:"20"`
}

// RecipeMinifiedResponse is the short recipe form used in relation replies
// and author previews.
type RecipeMinifiedResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// AuthorResponse is a user with a preview of their recipes.
type AuthorResponse struct {
	UserResponse
	Recipes      []RecipeMinifiedResponse `json:"recipes"`
	RecipesCount int64                    `json:"recipes_count"`
}

// Paginated is the list envelope: total count, neighbour page links and the
// current page of results.
type Paginated[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AuthToken string `json:"auth_token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// AvatarResponse carries the absolute URL of the new avatar.
type AvatarResponse struct {
	Avatar *string `json:"avatar"`
}

// ShortLinkResponse carries the short URL of a recipe.
type ShortLinkResponse struct {
	ShortLink string `json:"short-link" example:"http://localhost:8080/r/12/"`
}

//
// Presenters
//

// baseURL returns the configured public base URL or, without one, the
// scheme and host of the current request.
func (h *Handlers) baseURL(c *gin.Context) string {
	if h.opts.PublicBaseURL != "" {
		return h.opts.PublicBaseURL
	}
	if c == nil || c.Request == nil {
		return ""
	}
	return middleware.BaseURL(c.Request)
}

// mediaURL resolves a stored object key. Relative URLs become absolute when
// a request is at hand and stay relative otherwise.
func (h *Handlers) mediaURL(c *gin.Context, key string) string {
	if key == "" || h.svc.Media == nil {
		return ""
	}
	u := h.svc.Media.URL(key)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return h.baseURL(c) + u
}

func (h *Handlers) presentUser(c *gin.Context, u domain.User, subscribed bool) UserResponse {
	out := UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		avatar := h.mediaURL(c, u.Avatar)
		out.Avatar = &avatar
	}
	return out
}

func (h *Handlers) presentUserView(c *gin.Context, v services.UserView) UserResponse {
	return h.presentUser(c, v.User, v.IsSubscribed)
}

func (h *Handlers) presentRecipe(c *gin.Context, v services.RecipeView) RecipeResponse {
	lines := make([]RecipeIngredientResponse, len(v.Ingredients))
	for i, l := range v.Ingredients {
		lines[i] = RecipeIngredientResponse{
			ID:              l.IngredientID,
			Name:            l.Ingredient.Name,
			MeasurementUnit: l.Ingredient.MeasurementUnit,
			Amount:          l.Amount,
		}
	}
	return RecipeResponse{
		ID:               v.ID,
		Author:           h.presentUser(c, v.Author, v.AuthorSubscribed),
		Ingredients:      lines,
		IsFavorited:      v.IsFavorited,
		IsInShoppingCart: v.IsInShoppingCart,
		Name:             v.Name,
		Image:            h.mediaURL(c, v.Image),
		Text:             v.Text,
		CookingTime:      v.CookingTime,
	}
}

func (h *Handlers) presentMinified(c *gin.Context, r domain.Recipe) RecipeMinifiedResponse {
	return RecipeMinifiedResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       h.mediaURL(c, r.Image),
		CookingTime: r.CookingTime,
	}
}

func (h *Handlers) presentAuthor(c *gin.Context, a services.AuthorView) AuthorResponse {
	recipes := make([]RecipeMinifiedResponse, len(a.Recipes))
	for i, r := range a.Recipes {
		recipes[i] = h.presentMinified(c, r)
	}
	return AuthorResponse{
		UserResponse: h.presentUserView(c, a.UserView),
		Recipes:      recipes,
		RecipesCount: a.RecipesCount,
	}
}

// paginate builds the list envelope; next and previous keep the current
// query string and only change `page`.
func paginate[T any](h *Handlers, c *gin.Context, p utils.Page, total int64, results []T) Paginated[T] {
	if results == nil {
		results = []T{}
	}
	out := Paginated[T]{Count: total, Results: results}
	if p.HasNext(total) {
		next := h.pageLink(c, p.Number+1)
		out.Next = &next
	}
	if p.HasPrev(total) {
		prev := h.pageLink(c, p.Number-1)
		out.Previous = &prev
	}
	return out
}

func (h *Handlers) pageLink(c *gin.Context, page int) string {
	q := c.Request.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return h.baseURL(c) + u.String()
}
