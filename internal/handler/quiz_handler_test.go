package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quizportal/internal/entity"
	"quizportal/internal/identity"
	"quizportal/internal/middleware"
	"quizportal/internal/portal"
	"quizportal/internal/profile"
	"quizportal/internal/routes"
	"quizportal/internal/templates"
)

type batchProfiles map[string]string

func (b batchProfiles) FetchProfile(_ context.Context, uid string) (profile.Document, error) {
	batch, ok := b[uid]
	if !ok {
		return profile.Document{}, nil
	}
	return profile.Document{Exists: true, Data: map[string]any{"role_num": 2, "batch_id": batch}}, nil
}

// listedQuizzes serves ListQuizzes only; the other QuizStore methods are not
// reached by the dashboard.
type listedQuizzes struct {
	QuizStore
	quizzes []entity.Quiz
}

func (l listedQuizzes) ListQuizzes(context.Context) ([]entity.Quiz, error) {
	return l.quizzes, nil
}

type dashboardEnv struct {
	client   *portal.Client
	mw       *middleware.Middleware
	handler  *QuizHandler
	dashMeta routes.Meta
}

func newDashboardEnv(t *testing.T) *dashboardEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := portal.NewRegistry(portal.Deps{
		Profiles:      batchProfiles{"u-stu": "b1"},
		ToastDuration: time.Hour,
		Logger:        log,
	}, time.Hour)
	client, err := registry.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	generated, err := routes.Generate(templates.FS, templates.PagesDir, ".page.html")
	if err != nil {
		t.Fatalf("generate routes: %v", err)
	}
	table, err := routes.NewTable(generated, routes.ProtectedRoutes())
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	render, err := NewRenderer(templates.FS, table, log)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	b1, b2 := "b1", "b2"
	quizzes := listedQuizzes{quizzes: []entity.Quiz{
		{ID: 1, Title: "Fractions for b1", BatchID: &b1},
		{ID: 2, Title: "Decimals for b2", BatchID: &b2},
	}}
	dash, _ := table.ByName(routes.StudentDashboard)

	return &dashboardEnv{
		client:   client,
		mw:       middleware.New(nil, registry, nil, log),
		handler:  NewQuizHandler(quizzes, table, render, log),
		dashMeta: dash.Meta,
	}
}

func (e *dashboardEnv) request() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/student/dashboard", nil)
	return req.WithContext(middleware.WithClient(req.Context(), e.client))
}

func TestStudentDashboardKeepsAuthorizedSessionAfterSignOut(t *testing.T) {
	env := newDashboardEnv(t)
	env.client.Auth.SignIn(identity.Identity{UID: "u-stu", DisplayName: "Sam"})

	h := env.mw.Guard(env.dashMeta)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Another tab signs out between the guard and the handler.
		env.client.Auth.SignOut()
		env.handler.StudentDashboard(w, r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, env.request())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Fractions for b1") {
		t.Fatalf("expected the b1 quiz in the dashboard")
	}
	if strings.Contains(body, "Decimals for b2") {
		t.Fatalf("quiz of another batch leaked into the dashboard")
	}
}

func TestProtectedHandlerWithoutAuthorizedSessionRedirects(t *testing.T) {
	env := newDashboardEnv(t)
	env.client.Auth.SignOut()

	rec := httptest.NewRecorder()
	env.handler.StudentDashboard(rec, env.request())

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != routes.LoginPath {
		t.Fatalf("expected redirect to %s, got %s", routes.LoginPath, got)
	}
}
