// User HTTP handlers.
//
//   - POST   /users/                   (register)
//   - GET    /users/                   (list, paginated)
//   - GET    /users/{id}/              (detail)
//   - GET    /users/me/                (current user)
//   - POST   /users/set_password/      (change password)
//   - PUT    /users/me/avatar/         (upload avatar)
//   - DELETE /users/me/avatar/         (remove avatar)
//   - GET    /users/subscriptions/     (followed authors, paginated)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

// AvatarRequest is the avatar upload payload.
type AvatarRequest struct {
	// Avatar is a base64 data URI (PNG, JPEG or GIF).
	Avatar *string `json:"avatar" example:"data:image/png;base64,iVBORw0KGgo..."`
}

// Register godoc
// @ID          registerUser
// @Summary     Register a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      services.RegisterInput  true  "Sign-up payload"
// @Success     201   {object}  handlers.RegisterResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /users/ [post]
func (h *Handlers) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.svc.Users.Register(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, RegisterResponse{
		Email:     u.Email,
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Tags        Users
// @Produce     json
// @Param       page   query     int  false  "Page number"     minimum(1) default(1)
// @Param       limit  query     int  false  "Items per page"  minimum(1) maximum(100) default(6)
// @Success     200    {object}  handlers.Paginated[handlers.UserResponse]
// @Router      /users/ [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	p := h.pageFrom(c)
	items, total, err := h.svc.Users.ListPage(c.Request.Context(), viewer(c), p.Number, p.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]UserResponse, len(items))
	for i, v := range items {
		out[i] = h.presentUserView(c, v)
	}
	ok(c, http.StatusOK, paginate(h, c, p, total, out))
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       id   path      int  true  "User ID"
// @Success     200  {object}  handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/ [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	v, err := h.svc.Users.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.presentUserView(c, *v))
}

// Me godoc
// @ID          currentUser
// @Summary     Current user
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Success     200  {object}  handlers.UserResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /users/me/ [get]
func (h *Handlers) Me(c *gin.Context) {
	uid := viewer(c)
	v, err := h.svc.Users.Get(c.Request.Context(), uid, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.presentUserView(c, *v))
}

// SetPassword godoc
// @ID          setPassword
// @Summary     Change password
// @Tags        Users
// @Accept      json
// @Security    TokenAuth
// @Param       body  body      services.SetPasswordInput  true  "Passwords"
// @Success     204   {string}  string  "No Content"
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed or wrong password"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /users/set_password/ [post]
func (h *Handlers) SetPassword(c *gin.Context) {
	var in services.SetPasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.svc.Users.SetPassword(c.Request.Context(), viewer(c), in); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// SetAvatar godoc
// @ID          setAvatar
// @Summary     Upload avatar
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    TokenAuth
// @Param       body  body      handlers.AvatarRequest  true  "Avatar payload"
// @Success     200   {object}  handlers.AvatarResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /users/me/avatar/ [put]
func (h *Handlers) SetAvatar(c *gin.Context) {
	var in AvatarRequest
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.svc.Users.SetAvatar(c.Request.Context(), viewer(c), in.Avatar)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AvatarResponse{Avatar: h.presentUser(c, *u, false).Avatar})
}

// DeleteAvatar godoc
// @ID          deleteAvatar
// @Summary     Remove avatar
// @Tags        Users
// @Security    TokenAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /users/me/avatar/ [delete]
func (h *Handlers) DeleteAvatar(c *gin.Context) {
	if err := h.svc.Users.ClearAvatar(c.Request.Context(), viewer(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Subscriptions godoc
// @ID          listSubscriptions
// @Summary     Followed authors (paginated)
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Param       page           query     int  false  "Page number"                 minimum(1) default(1)
// @Param       limit          query     int  false  "Items per page"              minimum(1) maximum(100) default(6)
// @Param       recipes_limit  query     int  false  "Max recipes in each preview"  minimum(0)
// @Success     200  {object}  handlers.Paginated[handlers.AuthorResponse]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad recipes_limit"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /users/subscriptions/ [get]
func (h *Handlers) Subscriptions(c *gin.Context) {
	limit, valid := recipesLimit(c)
	if !valid {
		return
	}
	p := h.pageFrom(c)
	items, total, err := h.svc.Users.SubscriptionsPage(c.Request.Context(), viewer(c), p.Number, p.Size, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]AuthorResponse, len(items))
	for i, a := range items {
		out[i] = h.presentAuthor(c, a)
	}
	ok(c, http.StatusOK, paginate(h, c, p, total, out))
}
