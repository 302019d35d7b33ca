package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/repository"
	"flatpages/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long a session token stays valid.
const TokenTTL = 7 * 24 * time.Hour

const tokenIssuer = "flatpages"

type AuthService struct {
	users  repository.UserRepository
	secret string
	now    func() time.Time
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is a signed token together with the account it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	IsStaff  bool
}

func NewAuthService(users repository.UserRepository, secret string) *AuthService {
	return &AuthService{users: users, secret: secret, now: time.Now}
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, expires, err := s.IssueToken(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	middleware.Logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "staff", user.IsStaff)
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	if s.secret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	expires := now.Add(TokenTTL)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"staff":    user.IsStaff,
		"iss":      tokenIssuer,
		"exp":      expires.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken resolves a session token to the viewer it identifies.
func (s *AuthService) ParseToken(token string) (models.Viewer, error) {
	viewer, err := middleware.ParseViewerToken(s.secret, token)
	if err != nil {
		return models.Anonymous, models.NewUnauthorizedError(err.Error())
	}
	return viewer, nil
}

func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		IsStaff:  in.IsStaff,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStaff grants or revokes admin access for the named user.
func (s *AuthService) SetStaff(ctx context.Context, username string, staff bool) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	if err := s.users.SetStaff(ctx, user.ID, staff); err != nil {
		return nil, err
	}
	user.IsStaff = staff
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.users.List(ctx, limit, offset)
}
