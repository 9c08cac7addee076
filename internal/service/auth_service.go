package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"patientrecords/internal/auth"
	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
	"patientrecords/internal/repository"
)

const bcryptCost = 10

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	// Role defaults to user when empty.
	Role model.Role
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (accessToken, refreshToken string, user *model.User, err error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, id *auth.Identity, refreshToken string) error
}

type authService struct {
	userRepo        repository.UserRepository
	jwtService      *auth.JWTService
	tokenStore      auth.TokenStoreInterface
	allowRoleSignup bool
	log             *logrus.Entry
}

// NewAuthService creates a new authentication service.
// allowRoleSignup controls whether a registration may ask for the admin role.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, allowRoleSignup bool, log *logrus.Logger) AuthService {
	return &authService{
		userRepo:        userRepo,
		jwtService:      jwtService,
		tokenStore:      tokenStore,
		allowRoleSignup: allowRoleSignup,
		log:             log.WithField("component", "auth_service"),
	}
}

// Register creates a new user with hashed password and signs them in.
// Duplicate emails are detected by the unique index, not by a lookup beforehand.
func (s *authService) Register(ctx context.Context, in RegisterInput) (string, string, *model.User, error) {
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return "", "", nil, apperrors.NewValidationError("role", "must be one of admin, user")
	}
	if role == model.RoleAdmin && !s.allowRoleSignup {
		return "", "", nil, apperrors.ErrForbidden
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return "", "", nil, err
	}

	user := &model.User{
		Email:        normalizeEmail(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return "", "", nil, apperrors.ErrUserAlreadyExists
		}
		return "", "", nil, fmt.Errorf("create user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", nil, apperrors.ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, apperrors.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

// RefreshToken validates a refresh token and returns a new access token.
// The new token carries the user's current role.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh || claims.ID == "" {
		return "", apperrors.ErrInvalidRefreshToken
	}

	// Verify token exists in Redis
	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}
	if storedUserID != claims.UserID || storedEmail != claims.Email {
		return "", apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes the caller's access token and, when given, their refresh token.
func (s *authService) Logout(ctx context.Context, id *auth.Identity, refreshToken string) error {
	if err := auth.RequireAuthenticated(id); err != nil {
		return err
	}

	if refreshToken != "" {
		claims, err := s.jwtService.ValidateToken(refreshToken)
		if err != nil || claims.Type != auth.TokenTypeRefresh || claims.UserID != id.UserID {
			return apperrors.ErrInvalidRefreshToken
		}
		if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	if id.TokenID != "" {
		if err := s.tokenStore.BlacklistAccessToken(ctx, id.TokenID, time.Until(id.ExpiresAt)); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	s.log.WithField("user_id", id.UserID).Info("user logged out")
	return nil
}

// issueTokens signs an access token and, when the token store accepts it, a refresh token.
func (s *authService) issueTokens(ctx context.Context, user *model.User) (string, string, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, s.jwtService.RefreshTTL()); err != nil {
		// an unstored refresh token could never be redeemed, so none is handed out
		if !errors.Is(err, auth.ErrTokenStoreUnavailable) {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("refresh token not stored")
		}
		return accessToken, "", nil
	}
	return accessToken, refreshToken, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
