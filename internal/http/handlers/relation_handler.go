// Relation HTTP handlers.
//
// Favorites, the shopping cart and subscriptions share one toggle: POST
// creates the (current user, target) row and answers 201 with a projection
// of the target; DELETE removes it and answers 204. Adding an existing row or
// removing an absent one answers 400.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

// toggle runs the add or remove side of rel for the current user and the
// target taken from the `id` path parameter. On a successful add, reply
// renders the 201 body.
func (h *Handlers) toggle(c *gin.Context, rel services.Relation, add bool, reply func(targetID uint) (any, error)) {
	targetID, valid := idParam(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	uid := viewer(c)

	if !add {
		if err := h.svc.Relations.Remove(ctx, rel, uid, targetID); err != nil {
			failErr(c, err)
			return
		}
		noContent(c)
		return
	}

	if err := h.svc.Relations.Add(ctx, rel, uid, targetID); err != nil {
		failErr(c, err)
		return
	}
	body, err := reply(targetID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, body)
}

func (h *Handlers) minifiedReply(c *gin.Context) func(uint) (any, error) {
	return func(id uint) (any, error) {
		r, err := h.svc.Recipes.Brief(c.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		return h.presentMinified(c, *r), nil
	}
}

// AddFavorite godoc
// @ID          addFavorite
// @Summary     Add a recipe to favorites
// @Tags        Recipes
// @Produce     json
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     201  {object}  handlers.RecipeMinifiedResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already in favorites"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/favorite/ [post]
func (h *Handlers) AddFavorite(c *gin.Context) {
	h.toggle(c, services.Favorites, true, h.minifiedReply(c))
}

// RemoveFavorite godoc
// @ID          removeFavorite
// @Summary     Remove a recipe from favorites
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not in favorites"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/favorite/ [delete]
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	h.toggle(c, services.Favorites, false, nil)
}

// AddToShoppingCart godoc
// @ID          addToShoppingCart
// @Summary     Add a recipe to the shopping cart
// @Tags        Recipes
// @Produce     json
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     201  {object}  handlers.RecipeMinifiedResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already in the cart"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/shopping_cart/ [post]
func (h *Handlers) AddToShoppingCart(c *gin.Context) {
	h.toggle(c, services.ShoppingCart, true, h.minifiedReply(c))
}

// RemoveFromShoppingCart godoc
// @ID          removeFromShoppingCart
// @Summary     Remove a recipe from the shopping cart
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not in the cart"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/shopping_cart/ [delete]
func (h *Handlers) RemoveFromShoppingCart(c *gin.Context) {
	h.toggle(c, services.ShoppingCart, false, nil)
}

// Subscribe godoc
// @ID          subscribe
// @Summary     Subscribe to an author
// @Description Returns the author with `recipes_count` and up to `recipes_limit` recipes.
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Param       id             path      int  true   "Author ID"
// @Param       recipes_limit  query     int  false  "Max recipes in the preview"  minimum(0)
// @Success     201  {object}  handlers.AuthorResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already subscribed, self subscription or bad recipes_limit"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/subscribe/ [post]
func (h *Handlers) Subscribe(c *gin.Context) {
	limit, valid := recipesLimit(c)
	if !valid {
		return
	}
	h.toggle(c, services.Subscriptions, true, func(authorID uint) (any, error) {
		a, err := h.svc.Users.Author(c.Request.Context(), viewer(c), authorID, limit)
		if err != nil {
			return nil, err
		}
		return h.presentAuthor(c, *a), nil
	})
}

// Unsubscribe godoc
// @ID          unsubscribe
// @Summary     Unsubscribe from an author
// @Tags        Users
// @Security    TokenAuth
// @Param       id   path      int  true  "Author ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not subscribed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/subscribe/ [delete]
func (h *Handlers) Unsubscribe(c *gin.Context) {
	h.toggle(c, services.Subscriptions, false, nil)
}
