// Package service provides the business logic behind the task API,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/repository"
)

var (
	// ErrEmailTaken is returned by Register for a known email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email or
	// a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnknownUser is returned when a valid token names a deleted user.
	ErrUnknownUser = errors.New("user no longer exists")
)

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	// UserExists returns true if a user with the given email exists.
	UserExists(ctx context.Context, email string) (bool, error)
	// CreateUser stores a new account.
	CreateUser(ctx context.Context, acc models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID, name, email string) (string, error)
}

// Service implements registration and login.
type Service struct {
	// repo performs the data-layer operations.
	repo   UserRepository
	tokens TokenIssuer
	now    func() time.Time
}

// NewAuthService constructs a new Service using the provided repository
// and token issuer.
func NewAuthService(repo UserRepository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, now: time.Now}
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := models.Account{
		User: models.User{
			ID:    strings.ReplaceAll(uuid.NewString(), "-", ""),
			Name:  req.Name,
			Email: req.Email,
		},
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.respond(acc.User)
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acc, err := s.repo.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.respond(acc.User)
}

// User returns the profile for an authenticated user id.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	acc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &acc.User, nil
}

func (s *Service) respond(u models.User) (*models.AuthResponse, error) {
	tok, err := s.tokens.Issue(u.ID, u.Name, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AuthResponse{AccessToken: tok, TokenType: "bearer", User: &u}, nil
}
