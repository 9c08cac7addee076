package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"patientrecords/internal/auth"
	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
	"patientrecords/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret", time.Minute, time.Hour)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name            string
		input           RegisterInput
		allowRoleSignup bool
		setupMock       func(*MockUserRepository, *MockTokenStore)
		expectedError   error
		expectedRole    model.Role
	}{
		{
			name:            "successful registration defaults to user role",
			input:           RegisterInput{Email: " Test@Example.com ", Password: "password123", FirstName: "Test", LastName: "User"},
			allowRoleSignup: true,
			setupMock: func(m *MockUserRepository, tok *MockTokenStore) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "test@example.com" && u.Role == model.RoleUser
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = 1
				}).Return(nil)
				tok.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "test@example.com", time.Hour).Return(nil)
			},
			expectedRole: model.RoleUser,
		},
		{
			name:            "admin registration when allowed",
			input:           RegisterInput{Email: "admin@example.com", Password: "password123", FirstName: "Admin", LastName: "User", Role: model.RoleAdmin},
			allowRoleSignup: true,
			setupMock: func(m *MockUserRepository, tok *MockTokenStore) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = 2
				}).Return(nil)
				tok.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(2), "admin@example.com", time.Hour).Return(nil)
			},
			expectedRole: model.RoleAdmin,
		},
		{
			name:            "admin registration when disabled",
			input:           RegisterInput{Email: "admin@example.com", Password: "password123", Role: model.RoleAdmin},
			allowRoleSignup: false,
			setupMock:       func(m *MockUserRepository, tok *MockTokenStore) {},
			expectedError:   apperrors.ErrForbidden,
		},
		{
			name:            "user already exists",
			input:           RegisterInput{Email: "existing@example.com", Password: "password123", FirstName: "Existing", LastName: "User"},
			allowRoleSignup: true,
			setupMock: func(m *MockUserRepository, tok *MockTokenStore) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicateKey)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)

			service := NewAuthService(mockRepo, newTestJWTService(), mockTokenStore, tt.allowRoleSignup, logrus.New())
			accessToken, refreshToken, user, err := service.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, accessToken)
			} else {
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.Equal(t, tt.expectedRole, user.Role)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.input.Password, user.PasswordHash)
				assert.NotEmpty(t, accessToken)
				assert.NotEmpty(t, refreshToken)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_RegisterRejectsUnknownRole(t *testing.T) {
	service := NewAuthService(new(MockUserRepository), newTestJWTService(), new(MockTokenStore), true, logrus.New())

	_, _, _, err := service.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "password123", Role: "superuser"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
		wantRefresh   bool
	}{
		{
			name:     "successful login",
			email:    "Test@Example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: hashed(t, "password123"),
					Role:         model.RoleUser,
				}, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "test@example.com", mock.Anything).Return(nil)
			},
			wantRefresh: true,
		},
		{
			name:     "token store unavailable still issues access token",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: hashed(t, "password123"),
				}, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "test@example.com", mock.Anything).Return(auth.ErrTokenStoreUnavailable)
			},
			wantRefresh: false,
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, repository.ErrNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			email:    "test@example.com",
			password: "wrong-password",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: hashed(t, "password123"),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)

			service := NewAuthService(mockRepo, newTestJWTService(), mockTokenStore, true, logrus.New())
			accessToken, refreshToken, user, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, accessToken)
				assert.Equal(t, tt.wantRefresh, refreshToken != "")
				assert.NotNil(t, user)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginStoreFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, errors.New("connection refused"))

	service := NewAuthService(mockRepo, newTestJWTService(), new(MockTokenStore), true, logrus.New())
	_, _, _, err := service.Login(context.Background(), "test@example.com", "password123")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestAuthService_RefreshToken(t *testing.T) {
	jwtService := newTestJWTService()
	user := &model.User{ID: 3, Email: "user@example.com", Role: model.RoleUser}
	tokenID, refreshToken, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)
	accessToken, err := jwtService.GenerateAccessToken(user)
	require.NoError(t, err)

	t.Run("issues token with current role", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockTokenStore := new(MockTokenStore)
		mockTokenStore.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(3), "user@example.com", nil)
		promoted := *user
		promoted.Role = model.RoleAdmin
		mockRepo.On("FindByID", mock.Anything, uint(3)).Return(&promoted, nil)

		service := NewAuthService(mockRepo, jwtService, mockTokenStore, true, logrus.New())
		newToken, err := service.RefreshToken(context.Background(), refreshToken)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(newToken)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, claims.Role)
		assert.Equal(t, auth.TokenTypeAccess, claims.Type)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		mockTokenStore := new(MockTokenStore)
		mockTokenStore.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(0), "", auth.ErrRefreshTokenNotFound)

		service := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore, true, logrus.New())
		_, err := service.RefreshToken(context.Background(), refreshToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore), true, logrus.New())
		_, err := service.RefreshToken(context.Background(), accessToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := newTestJWTService()
	user := &model.User{ID: 3, Email: "user@example.com", Role: model.RoleUser}
	tokenID, refreshToken, err := jwtService.GenerateRefreshToken(user)
	require.NoError(t, err)
	id := &auth.Identity{UserID: 3, Email: "user@example.com", Role: model.RoleUser, TokenID: "access-jti", ExpiresAt: time.Now().Add(time.Minute)}

	t.Run("revokes both tokens", func(t *testing.T) {
		mockTokenStore := new(MockTokenStore)
		mockTokenStore.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
		mockTokenStore.On("BlacklistAccessToken", mock.Anything, "access-jti", mock.AnythingOfType("time.Duration")).Return(nil)

		service := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore, true, logrus.New())
		require.NoError(t, service.Logout(context.Background(), id, refreshToken))
		mockTokenStore.AssertExpectations(t)
	})

	t.Run("refresh token of another user", func(t *testing.T) {
		other := &auth.Identity{UserID: 9, TokenID: "x", ExpiresAt: time.Now().Add(time.Minute)}
		service := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore), true, logrus.New())
		assert.ErrorIs(t, service.Logout(context.Background(), other, refreshToken), apperrors.ErrInvalidRefreshToken)
	})

	t.Run("anonymous", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore), true, logrus.New())
		assert.ErrorIs(t, service.Logout(context.Background(), nil, ""), apperrors.ErrUnauthenticated)
	})
}
