package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"quizportal/internal/identity"
	"quizportal/internal/routes"
	"quizportal/internal/session"
)

// Authenticator signs a visitor in with email and password.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (identity.Identity, string, error)
}

// TokenKeeper persists the ID token in the visitor cookie.
type TokenKeeper interface {
	StoreToken(w http.ResponseWriter, r *http.Request, token string) (string, error)
	ClearToken(w http.ResponseWriter, r *http.Request) error
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type AuthHandler struct {
	auth   Authenticator
	tokens TokenKeeper
	table  *routes.Table
	render *Renderer
	log    *slog.Logger
}

func NewAuthHandler(auth Authenticator, tokens TokenKeeper, table *routes.Table, render *Renderer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{auth: auth, tokens: tokens, table: table, render: render, log: log}
}

// LoginPage shows the sign-in form, or sends a signed in visitor to their
// dashboard.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if st := client.State(); st.Authenticated() {
		http.Redirect(w, r, landingPath(st), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		msgs, ok := validationMessages(err)
		if !ok {
			msgs = []string{"Could not read the form"}
		}
		h.renderLogin(w, r, http.StatusUnprocessableEntity, form.Email, msgs)
		return
	}

	id, token, err := h.auth.SignIn(r.Context(), form.Email, form.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.log.Info("sign in rejected", "email", form.Email)
		h.renderLogin(w, r, http.StatusUnauthorized, form.Email, []string{"Invalid email or password"})
		return
	}
	if err != nil {
		h.log.Error("sign in", "email", form.Email, "error", err)
		http.Error(w, "sign in unavailable", http.StatusInternalServerError)
		return
	}

	next, err := h.tokens.StoreToken(w, r, token)
	if err != nil {
		h.log.Error("store id token", "uid", id.UID, "error", err)
		http.Error(w, "sign in unavailable", http.StatusInternalServerError)
		return
	}

	// Hydration runs synchronously inside SignIn, so the session is current here.
	client.Auth.SignIn(id)
	st := client.State()
	h.log.Info("signed in", "uid", id.UID, "role_num", roleNum(st))

	target := landingPath(st)
	if next != "" && routes.Authorize(h.table.Resolve(pathOnly(next)).Meta, st) == "" {
		target = next
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := h.tokens.ClearToken(w, r); err != nil {
		h.log.Error("clear id token", "client", client.ID, "error", err)
	}
	client.Auth.SignOut()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email string, errs []string) {
	route := h.table.Resolve(routes.LoginPath)
	data := h.render.Page(r, route)
	data.Form["email"] = email
	data.Errors = errs
	h.render.Render(w, route, status, data)
}

func landingPath(st session.State) string {
	if st.IsAdmin() {
		return "/admin/dashboard"
	}
	return "/student/dashboard"
}

func roleNum(st session.State) int {
	if st.Profile == nil {
		return 0
	}
	return st.Profile.RoleNum
}

func pathOnly(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}
