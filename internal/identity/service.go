package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"quizportal/internal/entity"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AccountFinder interface {
	FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
}

// Service is the sign-in side of the auth boundary. It never touches profile
// documents; roles live there, not in the identity.
type Service struct {
	accounts AccountFinder
	tokens   *Tokens
}

func NewService(accounts AccountFinder, tokens *Tokens) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// SignIn checks the password and returns the identity plus a fresh ID token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := s.accounts.FindAccountByEmail(ctx, email)
	if errors.Is(err, entity.ErrNotFound) {
		return Identity{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, "", fmt.Errorf("find account: %w", err)
	}

	if !CheckPassword(password, acc.PasswordHash) {
		return Identity{}, "", ErrInvalidCredentials
	}

	id := Identity{
		UID:         acc.UID,
		DisplayName: acc.DisplayName,
		Email:       acc.Email,
		PhotoURL:    acc.PhotoURL,
	}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return Identity{}, "", fmt.Errorf("issue token: %w", err)
	}
	return id, token, nil
}

func (s *Service) Verify(token string) (Identity, error) {
	return s.tokens.Parse(token)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
