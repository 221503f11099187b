package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulsechat/auth"
	"pulsechat/errors"
	"pulsechat/mocks"
	"pulsechat/repositories"
)

var testSecret = []byte("unit-test-secret")

func TestUserService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(mockRepo, testSecret, 24*time.Hour)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		password := "ComplexPass123!"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(username, gomock.Not(password)).
			Return(repositories.Account{ID: "user-uuid", Username: username}, nil).
			Times(1)
		mockRepo.EXPECT().SetSession("user-uuid", gomock.Any()).Return(nil)

		result, err := svc.Register(username, password)

		req.NoError(err)
		req.Equal("user-uuid", result.UserID)
		req.NotEmpty(result.SessionID)
		req.NotEmpty(result.SessionToken)
		req.NotEmpty(result.JWT)
		req.True(auth.VerifySessionToken(testSecret, result.SessionID, result.SessionToken))
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("alice42", "simplebutlongenough")

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should fail when the username is taken", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("alice42", gomock.Any()).
			Return(repositories.Account{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("alice42", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestUserService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(mockRepo, testSecret, 24*time.Hour)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		password := "Secret123456!"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		stored := repositories.Account{
			ID:           "uuid-123",
			Username:     "alice42",
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().GetByUsername("alice42").Return(stored, nil).Times(1)
		mockRepo.EXPECT().SetSession("uuid-123", gomock.Any()).Return(nil)

		result, err := svc.Login("alice42", password)

		req.NoError(err)
		req.NotEmpty(result.JWT)

		claims, err := auth.ValidateToken(result.JWT)
		req.NoError(err)
		req.Equal(stored.ID, claims.UserID)
		req.Equal(stored.Username, claims.Username)
	})

	t.Run("should return invalid credentials on a wrong password", func(t *testing.T) {
		req := require.New(t)

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		mockRepo.EXPECT().GetByUsername("alice42").
			Return(repositories.Account{ID: "uuid-123", PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err := svc.Login("alice42", "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when the user is unknown", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetByUsername("nobody").
			Return(repositories.Account{}, errors.ErrNotFound).
			Times(1)

		_, err := svc.Login("nobody", "anyPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}

func TestUserService_Sessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewUserService(mockRepo, testSecret, time.Hour)

	t.Run("should resolve a user from a session", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetBySession("sess-1").
			Return(repositories.Account{ID: "uuid-123", Username: "alice42", IsOnline: true}, nil)

		user, err := svc.GetBySession("sess-1")

		req.NoError(err)
		req.Equal("uuid-123", user.ID)
		req.True(user.IsOnline)
	})

	t.Run("should clear the session on logout", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().ClearSession("sess-1").Return(nil)

		req.NoError(svc.Logout("sess-1"))
	})
}
