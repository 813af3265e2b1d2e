// Package services – UserService
//
// This file implements registration, profile reads, password changes,
// avatars and the author projections used by subscriptions. Request structs
// are checked with go-playground/validator and failures are reported under
// their JSON field names.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/auth"
	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

var usernameRE = regexp.MustCompile(`^[\w.@+-]+$`)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	Username  string `json:"username"   validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name"  validate:"required,max=150"`
	Password  string `json:"password"   validate:"required,max=72"`
}

// SetPasswordInput is the password change payload.
type SetPasswordInput struct {
	NewPassword     string `json:"new_password"     validate:"required,max=72"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// UserView is a user as seen by one viewer.
type UserView struct {
	domain.User
	IsSubscribed bool
}

// AuthorView is a user with a preview of their recipes.
type AuthorView struct {
	UserView
	Recipes      []domain.Recipe
	RecipesCount int64
}

// UserService manages accounts and author projections.
type UserService struct {
	DB    *gorm.DB
	Store storage.Store

	BcryptCost    int
	MaxImageBytes int64

	validate *validator.Validate
}

// NewUserService constructs a UserService with its struct validator.
func NewUserService(db *gorm.DB, store storage.Store, bcryptCost int, maxImageBytes int64) *UserService {
	return &UserService{
		DB:            db,
		Store:         store,
		BcryptCost:    bcryptCost,
		MaxImageBytes: maxImageBytes,
		validate:      newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRE.MatchString(fl.Field().String())
	})
	return v
}

// validateStruct runs the validator and converts its report to a
// *ValidationError keyed by JSON field name.
func validateStruct(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), validationMessage(fe))
	}
	return fields.Err()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "username":
		return "enter a valid username; it may contain only letters, numbers and @/./+/-/_ characters"
	default:
		return "invalid value"
	}
}

// Register creates a user. Duplicate email or username is reported on the
// offending field, whether caught by the pre-check or by the unique index.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if err := s.checkTaken(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fieldError("password", "ensure this field has no more than 72 bytes")
		}
		return nil, err
	}

	u := &domain.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if repo.IsDuplicate(err) {
			if terr := s.checkTaken(ctx, in.Email, in.Username); terr != nil {
				return nil, terr
			}
			return nil, fieldError("non_field_errors", "a user with these credentials already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) checkTaken(ctx context.Context, email, username string) error {
	fields := FieldErrors{}
	taken, err := repo.UserFieldTaken(ctx, s.DB, "email", email)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("email", "a user with that email already exists")
	}
	taken, err = repo.UserFieldTaken(ctx, s.DB, "username", username)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("username", "a user with that username already exists")
	}
	return fields.Err()
}

// Get returns a user as seen by viewerID.
func (s *UserService) Get(ctx context.Context, viewerID, id uint) (*UserView, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	subs, err := repo.Subscriptions.Targets(ctx, s.DB, viewerID, []uint{id})
	if err != nil {
		return nil, err
	}
	return &UserView{User: *u, IsSubscribed: subs[id]}, nil
}

// ListPage returns one page of users ordered by id and the total count.
func (s *UserService) ListPage(ctx context.Context, viewerID uint, page, pageSize int) ([]UserView, int64, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 6
	}
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	users, err := repo.ListUsersPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subs, err := repo.Subscriptions.Targets(ctx, s.DB, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserView, len(users))
	for i, u := range users {
		out[i] = UserView{User: u, IsSubscribed: subs[u.ID]}
	}
	return out, total, nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error {
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if !auth.CheckPassword(u.Password, in.CurrentPassword) {
		return fieldError("current_password", "wrong password")
	}
	hash, err := auth.HashPassword(in.NewPassword, s.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fieldError("new_password", "ensure this field has no more than 72 bytes")
		}
		return err
	}
	return repo.UpdateUserPassword(ctx, s.DB, userID, hash)
}

// SetAvatar decodes a data-URI image, stores it and replaces the user's
// avatar. The previous avatar object is removed after the update.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, dataURI *string) (*domain.User, error) {
	if dataURI == nil {
		return nil, fieldError("avatar", "this field is required")
	}
	img, err := DecodeImage(*dataURI, s.MaxImageBytes)
	if err != nil {
		return nil, fieldError("avatar", err.Error())
	}
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key, err := putImage(ctx, s.Store, avatarFolder, img)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateUserAvatar(ctx, s.DB, userID, key); err != nil {
		discardImage(ctx, s.Store, key)
		return nil, err
	}
	discardImage(ctx, s.Store, u.Avatar)
	u.Avatar = key
	return u, nil
}

// ClearAvatar removes the user's avatar, if any.
func (s *UserService) ClearAvatar(ctx context.Context, userID uint) error {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Avatar == "" {
		return nil
	}
	if err := repo.UpdateUserAvatar(ctx, s.DB, userID, ""); err != nil {
		return err
	}
	discardImage(ctx, s.Store, u.Avatar)
	return nil
}

// Author returns the author projection of authorID: the user, the viewer's
// subscription flag, the recipe count and up to recipesLimit recipes
// (all of them when recipesLimit < 0).
func (s *UserService) Author(ctx context.Context, viewerID, authorID uint, recipesLimit int) (*AuthorView, error) {
	uv, err := s.Get(ctx, viewerID, authorID)
	if err != nil {
		return nil, err
	}
	views, err := s.authorViews(ctx, []UserView{*uv}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SubscriptionsPage returns the authors viewerID follows, newest
// subscription first.
func (s *UserService) SubscriptionsPage(ctx context.Context, viewerID uint, page, pageSize, recipesLimit int) ([]AuthorView, int64, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "SubscriptionsPage",
		trace.WithAttributes(
			attribute.Int64("viewer.id", int64(viewerID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 6
	}
	total, err := repo.CountSubscriptions(ctx, s.DB, viewerID)
	if err != nil {
		return nil, 0, err
	}
	authors, err := repo.ListSubscribedAuthorsPage(ctx, s.DB, viewerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	uvs := make([]UserView, len(authors))
	for i, a := range authors {
		uvs[i] = UserView{User: a, IsSubscribed: true}
	}
	views, err := s.authorViews(ctx, uvs, recipesLimit)
	return views, total, err
}

func (s *UserService) authorViews(ctx context.Context, users []UserView, recipesLimit int) ([]AuthorView, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	counts, err := repo.RecipeCountsByAuthor(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	out := make([]AuthorView, len(users))
	for i, u := range users {
		recipes, err := repo.ListRecipesByAuthor(ctx, s.DB, u.ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		out[i] = AuthorView{UserView: u, Recipes: recipes, RecipesCount: counts[u.ID]}
	}
	return out, nil
}
