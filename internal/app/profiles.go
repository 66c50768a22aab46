// Package app wires the profile document backend chosen by configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"

	"quizportal/internal/config"
	"quizportal/internal/profile"
	"quizportal/internal/repository"
)

type ProfileSaver interface {
	SaveProfile(ctx context.Context, uid string, data map[string]any) error
}

// Profiles is the configured document backend, optionally behind the Redis
// cache.
type Profiles struct {
	Fetcher profile.Fetcher
	saver   ProfileSaver
	cache   *profile.Cache
	closers []func() error
}

func OpenProfiles(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) (*Profiles, error) {
	p := &Profiles{}

	switch cfg.ProfileBackend {
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		p.closers = append(p.closers, client.Close)
		fs := profile.NewFirestore(client, cfg.ProfileCollection)
		p.Fetcher, p.saver = fs, fs
	case config.BackendPostgres:
		repo := repository.NewProfileRepository(db)
		p.Fetcher, p.saver = repo, repo
	default:
		return nil, fmt.Errorf("unknown profile backend %q", cfg.ProfileBackend)
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		p.closers = append(p.closers, rdb.Close)
		p.cache = profile.NewCache(p.Fetcher, rdb, cfg.ProfileCacheTTL, log)
		p.Fetcher = p.cache
	}
	return p, nil
}

// Save writes the document and drops any cached copy of it.
func (p *Profiles) Save(ctx context.Context, uid string, data map[string]any) error {
	if err := p.saver.SaveProfile(ctx, uid, data); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, uid); err != nil {
			return fmt.Errorf("invalidate cached profile: %w", err)
		}
	}
	return nil
}

func (p *Profiles) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	p.closers = nil
	return errors.Join(errs...)
}
