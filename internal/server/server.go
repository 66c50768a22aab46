package server

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"quizportal/internal/handler"
	"quizportal/internal/middleware"
	"quizportal/internal/routes"
)

// Deps are the collaborators the router hands requests to.
type Deps struct {
	Templates  fs.FS
	PagesDir   string
	PagesExt   string
	Middleware *middleware.Middleware
	Auth       handler.Authenticator
	Quizzes    handler.QuizStore
	Logger     *slog.Logger
}

// BuildTable generates page routes from fsys and adds the protected ones.
func BuildTable(fsys fs.FS, dir, ext string) (*routes.Table, error) {
	generated, err := routes.Generate(fsys, dir, ext)
	if err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}
	return routes.NewTable(generated, routes.ProtectedRoutes())
}

type Server struct {
	table *routes.Table
	mw    *middleware.Middleware
	pages *handler.PageHandler
	auth  *handler.AuthHandler
	quiz  *handler.QuizHandler
	toast *handler.ToastHandler
	log   *slog.Logger
}

func New(deps Deps) (*Server, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	table, err := BuildTable(deps.Templates, deps.PagesDir, deps.PagesExt)
	if err != nil {
		return nil, err
	}
	render, err := handler.NewRenderer(deps.Templates, table, log)
	if err != nil {
		return nil, err
	}

	return &Server{
		table: table,
		mw:    deps.Middleware,
		pages: handler.NewPageHandler(render),
		auth:  handler.NewAuthHandler(deps.Auth, deps.Middleware, table, render, log),
		quiz:  handler.NewQuizHandler(deps.Quizzes, table, render, log),
		toast: handler.NewToastHandler(log),
		log:   log,
	}, nil
}

func (s *Server) Table() *routes.Table {
	return s.table
}

// Router serves every route of the table behind the guard for its meta.
func (s *Server) Router() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	var routeErr error
	r.Group(func(r chi.Router) {
		r.Use(s.mw.Clients)

		for _, route := range s.table.Routes() {
			get, post := s.handlersFor(route)
			if get == nil {
				routeErr = fmt.Errorf("no handler for route %s (%s)", route.Name, route.Path)
				return
			}
			guarded := r.With(s.mw.Guard(route.Meta))
			guarded.Get(route.Path, get)
			if post != nil {
				guarded.Post(route.Path, post)
			}
		}

		if route, ok := s.table.ByName(routes.AdminQuestions); ok {
			r.With(s.mw.Guard(route.Meta)).Post(route.Path+"/generate", s.quiz.GenerateQuestions)
		}

		r.Post(routes.LoginPath, s.auth.Login)
		r.Post("/logout", s.auth.Logout)
		r.Get("/toasts", s.toast.List)
		r.Post("/toasts/{toastID}/dismiss", s.toast.Dismiss)
		r.Get("/ws", handler.WSHandler)
	})
	if routeErr != nil {
		return nil, routeErr
	}

	r.NotFound(s.mw.Clients(http.HandlerFunc(s.pages.NotFound)).ServeHTTP)
	return r, nil
}

func (s *Server) handlersFor(route routes.Route) (get, post http.HandlerFunc) {
	switch route.Name {
	case routes.AdminDashboard:
		return s.quiz.AdminDashboard, nil
	case routes.AdminQuizNew:
		return s.quiz.NewQuizPage, s.quiz.CreateQuiz
	case routes.AdminQuestions:
		return s.quiz.QuestionsPage, s.quiz.AddQuestion
	case routes.AdminSubmissions:
		return s.quiz.SubmissionsPage, nil
	case routes.StudentDashboard:
		return s.quiz.StudentDashboard, nil
	case routes.StudentTakeQuiz:
		return s.quiz.TakeQuizPage, s.quiz.SubmitQuiz
	}
	if route.Path == routes.LoginPath {
		return s.auth.LoginPage, nil
	}
	return s.pages.Serve(route), nil
}
