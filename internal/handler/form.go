package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"quizportal/internal/middleware"
	"quizportal/internal/portal"
	"quizportal/internal/routes"
	"quizportal/internal/session"
)

var validate = validator.New()

// validationMessages turns validator errors into lines a page can show.
// The second result is false when err is not a validation failure.
func validationMessages(err error) ([]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs, true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func requestClient(w http.ResponseWriter, r *http.Request) (*portal.Client, bool) {
	client, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		http.Error(w, "no client for request", http.StatusInternalServerError)
	}
	return client, ok
}

// signedIn returns the client with the session Guard authorized. A request
// that reaches a protected handler without one is sent to sign in.
func signedIn(w http.ResponseWriter, r *http.Request) (*portal.Client, session.State, bool) {
	client, ok := requestClient(w, r)
	if !ok {
		return nil, session.State{}, false
	}
	st, ok := middleware.StateFromContext(r.Context())
	if !ok || !st.Authenticated() {
		http.Redirect(w, r, routes.LoginPath, http.StatusSeeOther)
		return nil, session.State{}, false
	}
	return client, st, true
}
