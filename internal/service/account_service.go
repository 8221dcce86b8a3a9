package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ClarkHamofares/chat-app/internal/audit"
	"github.com/ClarkHamofares/chat-app/internal/auth"
	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/repository"
)

var (
	// ErrInvalidInput is returned when registration fields fail validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 8

type accountService struct {
	users   repository.UserRepository
	tokens  *auth.Manager
	auditor *audit.Auditor
}

// NewAccountService creates the account service.
func NewAccountService(users repository.UserRepository, tokens *auth.Manager, auditor *audit.Auditor) AccountService {
	return &accountService{
		users:   users,
		tokens:  tokens,
		auditor: auditor,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *accountService) Register(ctx context.Context, email, displayName, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if displayName == "" {
		return nil, ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.auditor.Register(user.ID, user.Email)
	return user, nil
}

// Login verifies credentials and issues a token for the websocket handshake.
// Unknown email and wrong password collapse into the same error.
func (s *accountService) Login(ctx context.Context, email, password string) (*domain.User, string, int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.auditor.Login(email, false)
			return nil, "", 0, ErrInvalidCredentials
		}
		return nil, "", 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.auditor.Login(email, false)
		return nil, "", 0, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", 0, err
	}

	s.auditor.Login(email, true)
	return user, token, expiresAt, nil
}
