package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"quizportal/internal/entity"
)

var ErrEmailTaken = errors.New("email already registered")

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var acc entity.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT uid, email, display_name, photo_url, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(email)).Scan(
		&acc.UID,
		&acc.Email,
		&acc.DisplayName,
		&acc.PhotoURL,
		&acc.PasswordHash,
		&acc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &acc, nil
}

// CreateAccount inserts acc with a fresh uid and returns it.
func (r *AccountRepository) CreateAccount(ctx context.Context, acc entity.Account) (*entity.Account, error) {
	acc.UID = uuid.NewString()
	acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (uid, email, display_name, photo_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, acc.UID, acc.Email, acc.DisplayName, acc.PhotoURL, acc.PasswordHash).Scan(&acc.CreatedAt)

	if isUniqueViolation(err, "") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &acc, nil
}
