// Recipe HTTP handlers.
//
// This file exposes REST endpoints for recipe resources:
//   - GET    /recipes/                          (list, paginated, filters)
//   - POST   /recipes/                          (create)
//   - GET    /recipes/{id}/                     (detail)
//   - PATCH  /recipes/{id}/                     (update, author only)
//   - DELETE /recipes/{id}/                     (delete, author only)
//   - GET    /recipes/{id}/get-link/            (short link)
//   - GET    /recipes/download_shopping_cart/   (plain-text shopping list)
//   - GET    /r/{code}/                         (short link redirect)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/sysutil"
)

// shoppingListFilename is offered to browsers saving the shopping list.
const shoppingListFilename = "shopping_cart.txt"

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes (paginated)
// @Description Returns recipes newest first. `is_favorited` and `is_in_shopping_cart` filter by the current user and match nothing for anonymous callers.
// @Tags        Recipes
// @Produce     json
//
// @Param       page                 query  int  false  "Page number"          minimum(1) default(1)
// @Param       limit                query  int  false  "Items per page"       minimum(1) maximum(100) default(6)
// @Param       author               query  int  false  "Author ID"
// @Param       is_favorited         query  int  false  "Only favorites (1)"   Enums(0, 1)
// @Param       is_in_shopping_cart  query  int  false  "Only cart items (1)"  Enums(0, 1)
//
// @Success     200  {object}  handlers.Paginated[handlers.RecipeResponse]
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filter"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/ [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	var q services.RecipeQuery
	if raw := c.Query("author"); raw != "" {
		id, valid := services.ParseShortCode(raw)
		if !valid {
			failErr(c, &services.ValidationError{Fields: services.FieldErrors{
				"author": {"select a valid author"},
			}})
			return
		}
		q.AuthorID = id
	}
	q.Favorited = queryFlag(c, "is_favorited")
	q.InCart = queryFlag(c, "is_in_shopping_cart")

	p := h.pageFrom(c)
	items, total, err := h.svc.Recipes.ListPage(c.Request.Context(), viewer(c), q, p.Number, p.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]RecipeResponse, len(items))
	for i, v := range items {
		out[i] = h.presentRecipe(c, v)
	}
	ok(c, http.StatusOK, paginate(h, c, p, total, out))
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Get a recipe
// @Tags        Recipes
// @Produce     json
// @Param       id   path      int  true  "Recipe ID"
// @Success     200  {object}  handlers.RecipeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	v, err := h.svc.Recipes.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.presentRecipe(c, *v))
}

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Create a recipe
// @Description Creates a recipe authored by the current user. `image` is a base64 data URI (PNG, JPEG or GIF, up to 10 MB).
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    TokenAuth
// @Param       body  body      services.RecipeInput  true  "Recipe payload"
// @Success     201   {object}  handlers.RecipeResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /recipes/ [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	var in services.RecipeInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.svc.Recipes.Create(c.Request.Context(), viewer(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, h.presentRecipe(c, *v))
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Update a recipe
// @Description Replaces name, text, cooking_time and ingredients (all required); `image` is optional. Recipes of other authors answer 404.
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    TokenAuth
// @Param       id    path      int                   true  "Recipe ID"
// @Param       body  body      services.RecipeInput  true  "Recipe payload"
// @Success     200   {object}  handlers.RecipeResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404   {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [patch]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var in services.RecipeInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.svc.Recipes.Update(c.Request.Context(), viewer(c), id, in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.presentRecipe(c, *v))
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Tags        Recipes
// @Security    TokenAuth
// @Param       id   path      int  true  "Recipe ID"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/ [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Recipes.Delete(c.Request.Context(), viewer(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// GetLink godoc
// @ID          getRecipeLink
// @Summary     Short link of a recipe
// @Tags        Recipes
// @Produce     json
// @Param       id   path      int  true  "Recipe ID"
// @Success     200  {object}  handlers.ShortLinkResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Recipe not found"
// @Router      /recipes/{id}/get-link/ [get]
func (h *Handlers) GetLink(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	r, err := h.svc.Recipes.Brief(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ShortLinkResponse{
		ShortLink: h.baseURL(c) + "/r/" + services.ShortCode(r.ID) + "/",
	})
}

// ResolveShortLink godoc
// @ID          resolveShortLink
// @Summary     Follow a recipe short link
// @Description Redirects to the recipe page. Codes are ASCII digits only.
// @Tags        Recipes
// @Param       code  path      string  true  "Short code"
// @Success     302   {string}  string  "Found"
// @Header      302   {string}  Location  "Recipe page URL"
// @Failure     404   {object}  handlers.ErrorResponse  "Unknown code"
// @Router      /r/{code}/ [get]
func (h *Handlers) ResolveShortLink(c *gin.Context) {
	id, err := h.svc.Recipes.ResolveShortCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.baseURL(c)+"/recipes/"+services.ShortCode(id)+"/")
}

// DownloadShoppingCart godoc
// @ID          downloadShoppingCart
// @Summary     Download the shopping list
// @Description Sums ingredient amounts over all recipes in the cart, grouped by name and unit.
// @Tags        Recipes
// @Produce     plain
// @Security    TokenAuth
// @Success     200  {string}  string  "Shopping list"
// @Header      200  {string}  Content-Disposition  "attachment; filename=\"shopping_cart.txt\""
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /recipes/download_shopping_cart/ [get]
func (h *Handlers) DownloadShoppingCart(c *gin.Context) {
	text, err := h.svc.ShoppingList.Render(c.Request.Context(), viewer(c))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// queryFlag reads a boolean filter; "1" and "true" enable it.
func queryFlag(c *gin.Context, name string) bool {
	return sysutil.IsTruthy(c.Query(name))
}
