package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// Login godoc
// @ID          login
// @Summary     Obtain an access token
// @Description Send the token back as `Authorization: Token <auth_token>`.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      services.LoginInput  true  "Credentials"
// @Success     200   {object}  handlers.TokenResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/token/login/ [post]
func (h *Handlers) Login(c *gin.Context) {
	var in services.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	token, err := h.svc.Auth.Login(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout godoc
// @ID          logout
// @Summary     Revoke the current token
// @Tags        Auth
// @Security    TokenAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /auth/token/logout/ [post]
func (h *Handlers) Logout(c *gin.Context) {
	sess, found := middleware.SessionFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication credentials were not provided")
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), *sess); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
