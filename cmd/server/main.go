package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"quizportal/internal/app"
	"quizportal/internal/config"
	"quizportal/internal/database"
	"quizportal/internal/identity"
	"quizportal/internal/middleware"
	"quizportal/internal/portal"
	"quizportal/internal/repository"
	"quizportal/internal/server"
	"quizportal/internal/templates"
)

const sweepEvery = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.LoadConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	profiles, err := app.OpenProfiles(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer profiles.Close()

	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		log.Warn("SESSION_KEY not set, visitor cookies will not survive a restart")
	}
	cookies := sessions.NewCookieStore(key)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	secret := cfg.TokenSecret
	if secret == "" {
		secret = string(securecookie.GenerateRandomKey(32))
		log.Warn("TOKEN_SECRET not set, sign ins will not survive a restart")
	}
	tokens := identity.NewTokens(secret, cfg.TokenIssuer, cfg.TokenTTL)
	auth := identity.NewService(repository.NewAccountRepository(db), tokens)

	registry := portal.NewRegistry(portal.Deps{
		Profiles:      profiles.Fetcher,
		FetchTimeout:  cfg.ProfileFetchTimeout,
		ToastDuration: cfg.ToastDuration,
		Logger:        log,
	}, cfg.ClientIdleTTL)
	go registry.Run(ctx, sweepEvery)

	srv, err := server.New(server.Deps{
		Templates:  templates.FS,
		PagesDir:   templates.PagesDir,
		PagesExt:   cfg.PagesExt,
		Middleware: middleware.New(cookies, registry, auth, log),
		Auth:       auth,
		Quizzes:    repository.NewQuizRepository(db),
		Logger:     log,
	})
	if err != nil {
		return err
	}
	router, err := srv.Router()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("quiz portal listening", "addr", cfg.HTTPAddr, "routes", len(srv.Table().Routes()), "profiles", cfg.ProfileBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("quiz portal stopped")
	return nil
}
