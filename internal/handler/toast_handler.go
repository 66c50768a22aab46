package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizportal/internal/toast"
)

type ToastHandler struct {
	log *slog.Logger
}

func NewToastHandler(log *slog.Logger) *ToastHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ToastHandler{log: log}
}

// List returns the visitor's active toasts, oldest first.
func (h *ToastHandler) List(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	toasts := client.Toasts.List()
	if toasts == nil {
		toasts = []toast.Toast{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toasts); err != nil {
		h.log.Debug("encode toasts", "error", err)
	}
}

// Dismiss removes one toast. Forms are redirected back to where they came
// from; other callers get 204.
func (h *ToastHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if !client.Toasts.Remove(chi.URLParam(r, "toastID")) {
		http.Error(w, "toast not found", http.StatusNotFound)
		return
	}
	if ref := r.Referer(); ref != "" && r.Header.Get("Accept") != "application/json" {
		http.Redirect(w, r, ref, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
