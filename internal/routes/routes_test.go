package routes

import (
	"errors"
	"testing"
	"testing/fstest"

	"quizportal/internal/session"
)

func pageFS(files ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, f := range files {
		fsys[f] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{end}}`)}
	}
	return fsys
}

func TestGeneratePaths(t *testing.T) {
	fsys := pageFS(
		"components/login.Page",
		"components/admin/dashboard.Page",
		"components/index.Page",
		"components/notes.txt",
	)

	got, err := Generate(fsys, "components", ".Page")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []Route{
		{Path: "/", Name: "index", Component: "components/index.Page"},
		{Path: "/admin/dashboard", Name: "dashboard", Component: "components/admin/dashboard.Page"},
		{Path: "/login", Name: "login", Component: "components/login.Page"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d routes, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("route %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestGenerateNestedIndex(t *testing.T) {
	got, err := Generate(pageFS("pages/about/index.page.html", "pages/about/team.page.html"), "pages", ".page.html")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 2 || got[0].Path != "/about" || got[0].Name != "about" || got[1].Path != "/about/team" {
		t.Fatalf("unexpected routes %+v", got)
	}
}

func TestGenerateDuplicatePath(t *testing.T) {
	_, err := Generate(pageFS("pages/about.page.html", "pages/about/index.page.html"), "pages", ".page.html")

	var dup *DuplicateRouteError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateRouteError, got %v", err)
	}
	if dup.Path != "/about" {
		t.Fatalf("unexpected duplicate path %q", dup.Path)
	}
}

func TestGenerateRootDir(t *testing.T) {
	got, err := Generate(pageFS("login.Page"), ".", ".Page")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/login" {
		t.Fatalf("unexpected routes %+v", got)
	}
}

func TestTableResolve(t *testing.T) {
	generated := []Route{
		{Path: "/", Name: "index"},
		{Path: "/login", Name: "login"},
	}
	table, err := NewTable(generated, ProtectedRoutes())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	tests := []struct {
		path string
		name string
	}{
		{"/", "index"},
		{"/login", "login"},
		{"/admin/dashboard", AdminDashboard},
		{"/admin/quizzes/new", AdminQuizNew},
		{"/admin/quizzes/42/questions", AdminQuestions},
		{"/admin/quizzes/42/submissions", AdminSubmissions},
		{"/student/dashboard", StudentDashboard},
		{"/student/quizzes/7", StudentTakeQuiz},
		{"/nowhere", NotFoundRouteName},
		{"/admin/quizzes/42", NotFoundRouteName},
	}
	for _, tt := range tests {
		if got := table.Resolve(tt.path); got.Name != tt.name {
			t.Errorf("resolve %s: expected %s, got %s", tt.path, tt.name, got.Name)
		}
	}

	if _, ok := table.ByName(AdminDashboard); !ok {
		t.Fatalf("expected admin dashboard by name")
	}
	if len(table.Routes()) != len(generated)+len(ProtectedRoutes()) {
		t.Fatalf("unexpected route count %d", len(table.Routes()))
	}
}

func TestTableResolvesRoot(t *testing.T) {
	table, err := NewTable([]Route{{Path: "/", Name: "index"}, {Path: "/about", Name: "about"}}, nil)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	for path, want := range map[string]string{"/": "index", "/about": "about", "/missing": NotFoundRouteName} {
		if got := table.Resolve(path); got.Name != want {
			t.Errorf("resolve %s: expected %s, got %s (%s)", path, want, got.Name, got.Path)
		}
	}
}

func TestTableRejectsCollisionWithStatic(t *testing.T) {
	_, err := NewTable([]Route{{Path: "/admin/dashboard", Component: "pages/admin/dashboard.page.html"}}, ProtectedRoutes())
	var dup *DuplicateRouteError
	if !errors.As(err, &dup) || dup.Path != "/admin/dashboard" {
		t.Fatalf("expected duplicate /admin/dashboard, got %v", err)
	}
}

func TestProtectedRoutesMeta(t *testing.T) {
	for _, r := range ProtectedRoutes() {
		if !r.Meta.RequiresAuth {
			t.Errorf("%s should require auth", r.Path)
		}
	}
}

func strPtr(s string) *string { return &s }

func signedIn(role int) session.State {
	return session.State{Status: session.Authenticated, Profile: &session.Profile{UID: "u-1", RoleNum: role, BatchID: strPtr("b")}}
}

func TestAuthorize(t *testing.T) {
	admin := Meta{RequiresAuth: true, RequiresAdmin: true}
	adminOnly := Meta{RequiresAdmin: true}
	student := Meta{RequiresAuth: true}
	public := Meta{}

	tests := []struct {
		name string
		meta Meta
		st   session.State
		want string
	}{
		{"admin page while loading", admin, session.State{Status: session.Loading}, LoginPath},
		{"admin page signed out", admin, session.State{Status: session.Unauthenticated}, LoginPath},
		{"admin page role 5", admin, signedIn(5), LoginPath},
		{"admin page role 1", admin, signedIn(1), LoginPath},
		{"admin page role 6", admin, signedIn(6), ""},
		{"admin-only flag signed out", adminOnly, session.State{Status: session.Unauthenticated}, LoginPath},
		{"admin-only flag role 9", adminOnly, signedIn(9), ""},
		{"student page while loading", student, session.State{Status: session.Loading}, LoginPath},
		{"student page signed out", student, session.State{Status: session.Unauthenticated}, LoginPath},
		{"student page role 1", student, signedIn(1), ""},
		{"public page signed out", public, session.State{Status: session.Unauthenticated}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.meta, tt.st); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNavigateCallsNextOnce(t *testing.T) {
	route := Route{Path: "/admin/dashboard", Meta: Meta{RequiresAdmin: true}}

	calls := 0
	var redirect string
	Navigate(route, session.State{Status: session.Unauthenticated}, func(to string) {
		calls++
		redirect = to
	})
	if calls != 1 || redirect != LoginPath {
		t.Fatalf("expected one redirect to login, got %d calls to %q", calls, redirect)
	}

	calls = 0
	Navigate(route, signedIn(8), func(to string) {
		calls++
		redirect = to
	})
	if calls != 1 || redirect != "" {
		t.Fatalf("expected one proceed, got %d calls to %q", calls, redirect)
	}
}
