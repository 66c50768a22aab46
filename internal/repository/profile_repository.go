package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quizportal/internal/profile"
)

// ProfileRepository stores profile documents as JSONB, one row per uid.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FetchProfile(ctx context.Context, uid string) (profile.Document, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE uid = $1`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Document{Exists: false}, nil
	}
	if err != nil {
		return profile.Document{}, &profile.FetchError{UID: uid, Err: err}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return profile.Document{}, &profile.FetchError{UID: uid, Err: fmt.Errorf("decode document: %w", err)}
	}
	return profile.Document{Exists: true, Data: data}, nil
}

// SaveProfile merges data into the stored document, creating it when missing.
func (r *ProfileRepository) SaveProfile(ctx context.Context, uid string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (uid, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (uid) DO UPDATE
		SET data = profiles.data || EXCLUDED.data,
			updated_at = now()
	`, uid, raw)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
