package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"quizportal/internal/middleware"
	"quizportal/internal/routes"
	"quizportal/internal/session"
	"quizportal/internal/toast"
)

// PageData is what every page template executes against.
type PageData struct {
	Title   string
	Path    string
	Session session.State
	Toasts  []toast.Toast
	Errors  []string
	Form    map[string]string
	Data    any
}

// Renderer holds one parsed template set per route component, each combined
// with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
	log   *slog.Logger
}

func NewRenderer(fsys fs.FS, table *routes.Table, log *slog.Logger) (*Renderer, error) {
	if log == nil {
		log = slog.Default()
	}
	rd := &Renderer{pages: make(map[string]*template.Template), log: log}

	all := append(table.Routes(), routes.NotFound)
	for _, route := range all {
		if _, ok := rd.pages[route.Component]; ok {
			continue
		}
		tmpl, err := template.ParseFS(fsys, "layout.html", route.Component)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", route.Component, err)
		}
		rd.pages[route.Component] = tmpl
	}
	return rd, nil
}

// Page prepares the data common to every page for the requesting client.
func (rd *Renderer) Page(r *http.Request, route routes.Route) PageData {
	data := PageData{
		Title: title(route.Name),
		Path:  r.URL.Path,
		Form:  map[string]string{},
	}
	if client, ok := middleware.ClientFromContext(r.Context()); ok {
		data.Session = client.State()
		data.Toasts = client.Toasts.List()
	}
	if st, ok := middleware.StateFromContext(r.Context()); ok {
		data.Session = st
	}
	return data
}

// Render executes the route's template into a buffer first so a failing
// template never leaves a half written page.
func (rd *Renderer) Render(w http.ResponseWriter, route routes.Route, status int, data PageData) {
	tmpl, ok := rd.pages[route.Component]
	if !ok {
		rd.log.Error("no template for route", "route", route.Name, "component", route.Component)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.log.Error("render page", "route", route.Name, "error", err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.log.Debug("write page", "route", route.Name, "error", err)
	}
}

// NotFound renders the catch-all page with a 404.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	data := rd.Page(r, routes.NotFound)
	data.Title = "Not found"
	rd.Render(w, routes.NotFound, http.StatusNotFound, data)
}

func title(name string) string {
	if name == "" || name == "index" {
		return ""
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
