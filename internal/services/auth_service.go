// Package services – AuthService
//
// AuthService exchanges credentials for signed access tokens, revokes them
// on logout and verifies bearer tokens for the authentication middleware.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/auth"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// LoginInput is the token login payload.
type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session identifies the authenticated caller of a request.
type Session struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// AuthService issues, revokes and verifies access tokens.
type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.Issuer

	validate *validator.Validate
	now      func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, tokens *auth.Issuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, validate: newValidator(), now: time.Now}
}

// Login checks the credentials and returns a new access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return "", err
	}
	badCredentials := fieldError("non_field_errors", "unable to log in with provided credentials")

	u, err := repo.GetUserByEmail(ctx, s.DB, in.Email)
	if err != nil {
		if repo.IsNotFound(err) {
			return "", badCredentials
		}
		return "", err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return "", badCredentials
	}
	token, _, err := s.Tokens.Issue(u.ID)
	return token, err
}

// Logout revokes the session's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, sess Session) error {
	if sess.TokenID == "" {
		return ErrInvalidToken
	}
	return repo.RevokeToken(ctx, s.DB, sess.TokenID, sess.UserID, sess.ExpiresAt)
}

// Verify parses raw and checks that it is not revoked and that its user
// still exists.
func (s *AuthService) Verify(ctx context.Context, raw string) (*Session, error) {
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := repo.IsTokenRevoked(ctx, s.DB, claims.ID, s.now())
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	if _, err := repo.GetUser(ctx, s.DB, uid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	sess := &Session{UserID: uid, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// PurgeExpired drops revocation records of tokens that have expired.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredTokens(ctx, s.DB, s.now())
}
