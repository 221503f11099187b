package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pulsechat/auth"
	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/repositories"
)

// LoginResult carries everything a client needs after authentication: the
// JWT for REST calls and the (sessionID, token) pair for the websocket
// handshake.
type LoginResult struct {
	UserID       string
	Username     string
	SessionID    string
	SessionToken string
	JWT          string
}

type IUserService interface {
	Register(username, password string) (LoginResult, error)
	Login(username, password string) (LoginResult, error)
	Logout(sessionID string) error
	GetBySession(sessionID string) (domain.User, error)
	GetUser(id string) (domain.User, error)
	SetOnline(id string, online bool) error
}

type UserService struct {
	users         repositories.IUserRepository
	serverSecret  []byte
	tokenDuration time.Duration
}

func NewUserService(users repositories.IUserRepository, serverSecret []byte, tokenDuration time.Duration) *UserService {
	return &UserService{users: users, serverSecret: serverSecret, tokenDuration: tokenDuration}
}

// Register validates credentials before any expensive cryptographic work,
// hashes the password with Argon2id, persists the account, and logs the new
// user straight in.
func (s *UserService) Register(username, password string) (LoginResult, error) {
	valReq := auth.RegisterRequest{Username: username, Password: password}
	if err := auth.ValidateRegister(valReq); err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("hashing failed: %w", err)
	}

	account, err := s.users.CreateUser(username, hashed)
	if err != nil {
		return LoginResult{}, err
	}
	return s.openSession(account)
}

// Login verifies the password and mints a fresh session. Lookup and compare
// failures collapse into one error to prevent user enumeration.
func (s *UserService) Login(username, password string) (LoginResult, error) {
	account, err := s.users.GetByUsername(username)
	if err != nil {
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, account.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, errors.ErrInvalidCredentials
	}
	return s.openSession(account)
}

func (s *UserService) openSession(account repositories.Account) (LoginResult, error) {
	sessionID := uuid.New().String()
	if err := s.users.SetSession(account.ID, sessionID); err != nil {
		return LoginResult{}, err
	}

	jwtToken, err := auth.GenerateToken(account.ID, account.Username, s.tokenDuration)
	if err != nil {
		return LoginResult{}, errors.ErrTokenGeneration
	}

	return LoginResult{
		UserID:       account.ID,
		Username:     account.Username,
		SessionID:    sessionID,
		SessionToken: auth.MintSessionToken(s.serverSecret, sessionID),
		JWT:          jwtToken,
	}, nil
}

func (s *UserService) Logout(sessionID string) error {
	return s.users.ClearSession(sessionID)
}

func (s *UserService) GetBySession(sessionID string) (domain.User, error) {
	account, err := s.users.GetBySession(sessionID)
	if err != nil {
		return domain.User{}, err
	}
	return toUser(account), nil
}

func (s *UserService) SetOnline(id string, online bool) error {
	return s.users.SetOnline(id, online)
}

func (s *UserService) GetUser(id string) (domain.User, error) {
	account, err := s.users.GetByID(id)
	if err != nil {
		return domain.User{}, err
	}
	return toUser(account), nil
}

func toUser(account repositories.Account) domain.User {
	return domain.User{
		ID:             account.ID,
		Username:       account.Username,
		ProfilePicture: account.ProfilePicture,
		CreatedAt:      account.CreatedAt,
		IsOnline:       account.IsOnline,
	}
}
