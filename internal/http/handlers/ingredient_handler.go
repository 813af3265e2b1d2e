package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListIngredients godoc
// @ID          listIngredients
// @Summary     Search ingredients
// @Description Unpaginated, ordered by name. `name` filters by case-insensitive prefix.
// @Tags        Ingredients
// @Produce     json
// @Param       name  query     string  false  "Name prefix"  example(sug)
// @Success     200   {array}   domain.Ingredient
// @Router      /ingredients/ [get]
func (h *Handlers) ListIngredients(c *gin.Context) {
	items, err := h.svc.Ingredients.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetIngredient godoc
// @ID          getIngredient
// @Summary     Get an ingredient
// @Tags        Ingredients
// @Produce     json
// @Param       id   path      int  true  "Ingredient ID"
// @Success     200  {object}  domain.Ingredient
// @Failure     404  {object}  handlers.ErrorResponse  "Ingredient not found"
// @Router      /ingredients/{id}/ [get]
func (h *Handlers) GetIngredient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	ing, err := h.svc.Ingredients.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ing)
}
