package handler

import (
	"net/http"

	"quizportal/internal/routes"
)

// PageHandler serves the generated pages, which need nothing beyond the
// common page data.
type PageHandler struct {
	render *Renderer
}

func NewPageHandler(render *Renderer) *PageHandler {
	return &PageHandler{render: render}
}

func (h *PageHandler) Serve(route routes.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render.Render(w, route, http.StatusOK, h.render.Page(r, route))
	}
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render.NotFound(w, r)
}
