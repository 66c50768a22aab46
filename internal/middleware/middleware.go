package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"quizportal/internal/identity"
	"quizportal/internal/portal"
	"quizportal/internal/routes"
	"quizportal/internal/session"
)

const (
	SessionName = "portal-session"

	clientIDKey      = "client_id"
	idTokenKey       = "id_token"
	redirectAfterKey = "redirect_after_login"
)

type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

type (
	clientContextKey struct{}
	stateContextKey  struct{}
)

func ClientFromContext(ctx context.Context) (*portal.Client, bool) {
	c, ok := ctx.Value(clientContextKey{}).(*portal.Client)
	return c, ok
}

func WithClient(ctx context.Context, c *portal.Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// StateFromContext returns the session snapshot Guard authorized the request
// against. Later sign outs do not change it.
func StateFromContext(ctx context.Context) (session.State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(session.State)
	return st, ok
}

// Middleware ties requests to portal clients through the visitor cookie.
type Middleware struct {
	store    sessions.Store
	registry *portal.Registry
	tokens   TokenVerifier
	log      *slog.Logger
}

func New(store sessions.Store, registry *portal.Registry, tokens TokenVerifier, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{store: store, registry: registry, tokens: tokens, log: log}
}

// Clients attaches the visitor's client to the request context. A client seen
// for the first time has its auth state restored from the stored ID token.
func (m *Middleware) Clients(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, SessionName)
		if err != nil {
			// Undecodable cookie, e.g. after a key rotation: start over.
			m.log.Debug("discarding visitor cookie", "error", err)
		}

		id, _ := sess.Values[clientIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[clientIDKey] = id
			if err := sess.Save(r, w); err != nil {
				m.log.Error("save visitor cookie", "error", err)
			}
		}

		client, err := m.registry.Get(r.Context(), id)
		if err != nil {
			m.log.Error("client unavailable", "client", id, "error", err)
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		if !client.Auth.Resolved() {
			client.RestoreAuth(func() { m.restore(client, sess) })
		}

		next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
	})
}

func (m *Middleware) restore(client *portal.Client, sess *sessions.Session) {
	token, _ := sess.Values[idTokenKey].(string)
	if token == "" {
		client.Auth.SignOut()
		return
	}
	id, err := m.tokens.Verify(token)
	if err != nil {
		m.log.Info("stored id token rejected", "client", client.ID, "error", err)
		client.Auth.SignOut()
		return
	}
	client.Auth.SignIn(id)
}

// Guard enforces meta on the wrapped handler. Unauthorized requests are sent
// to the login page; the requested path is remembered for after sign in.
func (m *Middleware) Guard(meta routes.Meta) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, ok := ClientFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, routes.LoginPath, http.StatusSeeOther)
				return
			}

			st := client.State()
			route := routes.Route{Path: r.URL.Path, Meta: meta}
			routes.Navigate(route, st, func(redirect string) {
				if redirect == "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateContextKey{}, st)))
					return
				}
				if r.Method == http.MethodGet {
					m.rememberPath(w, r, r.URL.RequestURI())
				}
				http.Redirect(w, r, redirect, http.StatusSeeOther)
			})
		})
	}
}

func (m *Middleware) rememberPath(w http.ResponseWriter, r *http.Request, path string) {
	sess, _ := m.store.Get(r, SessionName)
	sess.Values[redirectAfterKey] = path
	if err := sess.Save(r, w); err != nil {
		m.log.Error("save visitor cookie", "error", err)
	}
}

// StoreToken records a freshly issued ID token and returns the path the
// visitor was heading to before being sent to sign in, if any.
func (m *Middleware) StoreToken(w http.ResponseWriter, r *http.Request, token string) (string, error) {
	sess, _ := m.store.Get(r, SessionName)
	sess.Values[idTokenKey] = token
	next, _ := sess.Values[redirectAfterKey].(string)
	delete(sess.Values, redirectAfterKey)
	return next, sess.Save(r, w)
}

// ClearToken forgets the ID token but keeps the client id.
func (m *Middleware) ClearToken(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, SessionName)
	delete(sess.Values, idTokenKey)
	delete(sess.Values, redirectAfterKey)
	return sess.Save(r, w)
}
