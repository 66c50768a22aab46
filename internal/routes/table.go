package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
}

// Route is a navigable page. Component names the template that renders it.
type Route struct {
	Path      string
	Name      string
	Component string
	Meta      Meta
}

// Names of the statically declared routes.
const (
	AdminDashboard    = "admin-dashboard"
	AdminQuizNew      = "admin-quiz-new"
	AdminQuestions    = "admin-questions"
	AdminSubmissions  = "admin-submissions"
	StudentDashboard  = "student-dashboard"
	StudentTakeQuiz   = "student-take-quiz"
	NotFoundRouteName = "notfound"
)

// ProtectedRoutes is the fixed list of admin and student pages.
func ProtectedRoutes() []Route {
	admin := Meta{RequiresAuth: true, RequiresAdmin: true}
	student := Meta{RequiresAuth: true}
	return []Route{
		{Path: "/admin/dashboard", Name: AdminDashboard, Component: "protected/admin/dashboard.html", Meta: admin},
		{Path: "/admin/quizzes/new", Name: AdminQuizNew, Component: "protected/admin/quiz_new.html", Meta: admin},
		{Path: "/admin/quizzes/{quizID}/questions", Name: AdminQuestions, Component: "protected/admin/questions.html", Meta: admin},
		{Path: "/admin/quizzes/{quizID}/submissions", Name: AdminSubmissions, Component: "protected/admin/submissions.html", Meta: admin},
		{Path: "/student/dashboard", Name: StudentDashboard, Component: "protected/student/dashboard.html", Meta: student},
		{Path: "/student/quizzes/{quizID}", Name: StudentTakeQuiz, Component: "protected/student/take_quiz.html", Meta: student},
	}
}

// NotFound is the catch-all for any path nothing else matches.
var NotFound = Route{Path: "/*", Name: NotFoundRouteName, Component: "notfound.html"}

// Table is the immutable route list the router serves.
type Table struct {
	routes  []Route
	byPath  map[string]Route
	matcher *chi.Mux
}

// NewTable composes generated and static routes plus the catch-all. Two routes
// on the same path fail construction.
func NewTable(generated, static []Route) (*Table, error) {
	t := &Table{
		byPath:  make(map[string]Route),
		matcher: chi.NewMux(),
	}

	all := make([]Route, 0, len(generated)+len(static))
	all = append(all, generated...)
	all = append(all, static...)

	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, r := range all {
		if prev, ok := t.byPath[r.Path]; ok {
			return nil, &DuplicateRouteError{Path: r.Path, First: prev.Component, Second: r.Component}
		}
		t.byPath[r.Path] = r
		t.routes = append(t.routes, r)
		t.matcher.Get(r.Path, noop)
	}
	return t, nil
}

// Routes returns the declared routes, catch-all excluded.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Resolve maps a request path to its route, or NotFound.
func (t *Table) Resolve(path string) Route {
	if r, ok := t.byPath[path]; ok {
		return r
	}
	rctx := chi.NewRouteContext()
	if !t.matcher.Match(rctx, http.MethodGet, path) {
		return NotFound
	}
	// chi reports the root pattern as "".
	pattern := rctx.RoutePattern()
	if pattern == "" {
		pattern = "/"
	}
	if r, ok := t.byPath[pattern]; ok {
		return r
	}
	return NotFound
}

func (t *Table) ByName(name string) (Route, bool) {
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}
